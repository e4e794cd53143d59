package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/claimdesk/claims-api/internal/domain"
)

// ProfileRepo provides typed DynamoDB operations for the profiles table.
// PK: user_id, GSI: role-index.
type ProfileRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewProfileRepo(client *dynamodb.Client, tableName string) *ProfileRepo {
	return &ProfileRepo{client: client, tableName: tableName}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("profile not found: %w", domain.ErrNotFound)
	}
	var p domain.Profile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureWithIdentity upserts the profile row, filling identity fields only
// when they are currently empty. if_not_exists keeps populated full_name and
// email untouched, so a claim submission can never overwrite identity data.
// An empty string counts as empty too: rows seeded elsewhere with ""
// placeholders get backfilled by a conditional second write.
func (r *ProfileRepo) EnsureWithIdentity(ctx context.Context, userID, fullName, email string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
		UpdateExpression: aws.String(
			"SET #role = if_not_exists(#role, :role), tier = if_not_exists(tier, :tier), " +
				"full_name = if_not_exists(full_name, :fn), email = if_not_exists(email, :em), " +
				"created_at = if_not_exists(created_at, :now), updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#role": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": &types.AttributeValueMemberS{Value: domain.RoleUser},
			":tier": &types.AttributeValueMemberS{Value: domain.TierStandard},
			":fn":   &types.AttributeValueMemberS{Value: fullName},
			":em":   &types.AttributeValueMemberS{Value: email},
			":now":  &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return err
	}
	for _, fill := range identityBackfills(out.Attributes, fullName, email) {
		if err := r.fillIfEmpty(ctx, userID, fill.attr, fill.value); err != nil {
			return err
		}
	}
	return nil
}

type identityBackfill struct {
	attr  string
	value string
}

// identityBackfills inspects the post-upsert attribute map and returns the
// identity fields still holding an empty string. if_not_exists only skips
// absent attributes, so "" values survive the upsert and need a second pass.
func identityBackfills(attrs map[string]types.AttributeValue, fullName, email string) []identityBackfill {
	var fills []identityBackfill
	for _, c := range []identityBackfill{{"full_name", fullName}, {"email", email}} {
		if c.value == "" {
			continue
		}
		if s, ok := attrs[c.attr].(*types.AttributeValueMemberS); ok && s.Value == "" {
			fills = append(fills, c)
		}
	}
	return fills
}

// fillIfEmpty overwrites a single attribute only while it is still an empty
// string. A ConditionalCheckFailedException means a concurrent writer filled
// the field first, which is the desired end state.
func (r *ProfileRepo) fillIfEmpty(ctx context.Context, userID, attr, value string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("user_id", userID),
		UpdateExpression:         aws.String("SET #a = :v"),
		ConditionExpression:      aws.String("#a = :empty"),
		ExpressionAttributeNames: map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v":     &types.AttributeValueMemberS{Value: value},
			":empty": &types.AttributeValueMemberS{Value: ""},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

func (r *ProfileRepo) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("user_id", userID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// ListAdmins returns all profiles with the admin role via the role-index GSI.
func (r *ProfileRepo) ListAdmins(ctx context.Context) ([]domain.Profile, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("role-index"),
		KeyConditionExpression: aws.String("#role = :admin"),
		ExpressionAttributeNames: map[string]string{
			"#role": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":admin": &types.AttributeValueMemberS{Value: domain.RoleAdmin},
		},
	})
	if err != nil {
		return nil, err
	}
	var profiles []domain.Profile
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
