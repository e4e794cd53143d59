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

// ClaimRepo provides typed DynamoDB operations for the claims table.
// PK: claim_id, GSIs: user_id-index, business_id-index.
type ClaimRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewClaimRepo(client *dynamodb.Client, tableName string) *ClaimRepo {
	return &ClaimRepo{client: client, tableName: tableName}
}

func (r *ClaimRepo) Put(ctx context.Context, c *domain.Claim) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ClaimRepo) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("claim_id", claimID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("claim not found: %w", domain.ErrNotFound)
	}
	var c domain.Claim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns all claims ever submitted by a user, any status.
func (r *ClaimRepo) ListByUser(ctx context.Context, userID string) ([]domain.Claim, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-index"),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, err
	}
	var claims []domain.Claim
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// FindApprovedByBusiness returns the approved claim for a business, if any.
// A business carries at most one approved claim (ownership exclusivity).
func (r *ClaimRepo) FindApprovedByBusiness(ctx context.Context, businessID string) (*domain.Claim, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("business_id-index"),
		KeyConditionExpression:   aws.String("business_id = :b"),
		FilterExpression:         aws.String("#s = :approved"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":b":        &types.AttributeValueMemberS{Value: businessID},
			":approved": &types.AttributeValueMemberS{Value: domain.ClaimStatusApproved},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no approved claim for business: %w", domain.ErrNotFound)
	}
	var c domain.Claim
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindPendingByUserBusiness returns the pending claim for an exact (user, business)
// pair, if one exists. Guards against double submission via back-navigation.
func (r *ClaimRepo) FindPendingByUserBusiness(ctx context.Context, userID, businessID string) (*domain.Claim, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                aws.String(r.tableName),
		IndexName:                aws.String("user_id-index"),
		KeyConditionExpression:   aws.String("user_id = :u"),
		FilterExpression:         aws.String("business_id = :b AND #s = :pending"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u":       &types.AttributeValueMemberS{Value: userID},
			":b":       &types.AttributeValueMemberS{Value: businessID},
			":pending": &types.AttributeValueMemberS{Value: domain.ClaimStatusPending},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no pending claim for user/business: %w", domain.ErrNotFound)
	}
	var c domain.Claim
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetProofStatus merges one method's status into the proof_status map in a
// single UpdateItem. Concurrent verifications for different methods on the
// same claim therefore never overwrite each other. This must stay a
// single-key server-side merge, never a read-modify-write of the whole map.
func (r *ClaimRepo) SetProofStatus(ctx context.Context, claimID, method, status string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("claim_id", claimID),
		UpdateExpression:    aws.String("SET proof_status.#m = :s, updated_at = :u"),
		ConditionExpression: aws.String("attribute_exists(claim_id)"),
		ExpressionAttributeNames: map[string]string{
			"#m": method,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: status},
			":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("claim not found: %w", domain.ErrNotFound)
		}
		return err
	}
	return nil
}

// MergeProofData sets individual keys inside the proof_data map without
// touching the rest of it. Used to merge upload results after claim creation.
func (r *ClaimRepo) MergeProofData(ctx context.Context, claimID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":u": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}
	expr := "SET "
	i := 0
	for k, v := range updates {
		nameKey := fmt.Sprintf("#k%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		names[nameKey] = k
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal proof_data field %s: %w", k, err)
		}
		values[valueKey] = av
		expr += fmt.Sprintf("proof_data.%s = %s, ", nameKey, valueKey)
		i++
	}
	expr += "updated_at = :u"

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("claim_id", claimID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(claim_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// Update applies a generic partial update to top-level claim fields.
func (r *ClaimRepo) Update(ctx context.Context, claimID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("claim_id", claimID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}
