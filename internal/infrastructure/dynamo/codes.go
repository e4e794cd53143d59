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

// CodeRepo manages verification codes.
// PK: code_id, GSI: claim_id-index. Rows expire via TTL on expires_at.
type CodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCodeRepo(client *dynamodb.Client, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName}
}

func (r *CodeRepo) Put(ctx context.Context, v *domain.VerificationCode) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindActive looks up the unverified code row matching (claim, method, code).
// The lookup is deliberately scoped to the method so a code issued for one
// channel can never be used to verify a different one.
func (r *CodeRepo) FindActive(ctx context.Context, claimID, method, code string) (*domain.VerificationCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("claim_id-index"),
		KeyConditionExpression: aws.String("claim_id = :c"),
		FilterExpression:       aws.String("#m = :m AND #c = :code AND verified = :f"),
		ExpressionAttributeNames: map[string]string{
			"#m": "method",
			"#c": "code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c":    &types.AttributeValueMemberS{Value: claimID},
			":m":    &types.AttributeValueMemberS{Value: method},
			":code": &types.AttributeValueMemberS{Value: code},
			":f":    &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteByClaimMethod removes every code issued for (claim, method).
// Called before a resend so at most one active code exists per pair.
func (r *CodeRepo) DeleteByClaimMethod(ctx context.Context, claimID, method string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("claim_id-index"),
		KeyConditionExpression: aws.String("claim_id = :c"),
		FilterExpression:       aws.String("#m = :m"),
		ExpressionAttributeNames: map[string]string{
			"#m": "method",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: claimID},
			":m": &types.AttributeValueMemberS{Value: method},
		},
		ProjectionExpression: aws.String("code_id"),
	})
	if err != nil {
		return err
	}
	for _, item := range out.Items {
		idAttr, ok := item["code_id"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("code_id", idAttr.Value),
		}); err != nil {
			return err
		}
	}
	return nil
}

// MarkVerified flips a code to verified exactly once. A second call for the
// same code fails the condition and reports ErrConflict, which callers treat
// as "already verified".
func (r *CodeRepo) MarkVerified(ctx context.Context, codeID string, at time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("code_id", codeID),
		UpdateExpression:    aws.String("SET verified = :t, verified_at = :at"),
		ConditionExpression: aws.String("verified = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":at": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("code already verified: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}
