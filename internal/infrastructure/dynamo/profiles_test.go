package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileAttrs(fullName, email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"full_name": &types.AttributeValueMemberS{Value: fullName},
		"email":     &types.AttributeValueMemberS{Value: email},
	}
}

func TestIdentityBackfills_EmptyStringsAreFilled(t *testing.T) {
	fills := identityBackfills(profileAttrs("", ""), "Marie Ngono", "marie@example.com")

	require.Len(t, fills, 2)
	assert.Equal(t, identityBackfill{"full_name", "Marie Ngono"}, fills[0])
	assert.Equal(t, identityBackfill{"email", "marie@example.com"}, fills[1])
}

func TestIdentityBackfills_PopulatedFieldsAreLeftAlone(t *testing.T) {
	fills := identityBackfills(profileAttrs("Existing Name", "existing@example.com"), "Marie Ngono", "marie@example.com")

	assert.Empty(t, fills)
}

func TestIdentityBackfills_MixedFillsOnlyTheEmptyOne(t *testing.T) {
	fills := identityBackfills(profileAttrs("Existing Name", ""), "Marie Ngono", "marie@example.com")

	require.Len(t, fills, 1)
	assert.Equal(t, identityBackfill{"email", "marie@example.com"}, fills[0])
}

func TestIdentityBackfills_AbsentAttributesNeedNoSecondPass(t *testing.T) {
	// if_not_exists already wrote absent attributes during the upsert, so
	// the post-upsert map never shows them as empty.
	fills := identityBackfills(map[string]types.AttributeValue{}, "Marie Ngono", "marie@example.com")

	assert.Empty(t, fills)
}

func TestIdentityBackfills_BlankSubmittedValuesAreSkipped(t *testing.T) {
	fills := identityBackfills(profileAttrs("", ""), "", "")

	assert.Empty(t, fills)
}
