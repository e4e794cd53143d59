package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AssignmentRepo manages explicit user->business assignment rows.
// PK: user_id, SK: business_id.
type AssignmentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAssignmentRepo(client *dynamodb.Client, tableName string) *AssignmentRepo {
	return &AssignmentRepo{client: client, tableName: tableName}
}

// ListBusinessIDs returns the business ids explicitly assigned to a user.
func (r *AssignmentRepo) ListBusinessIDs(ctx context.Context, userID string) ([]string, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ProjectionExpression:      aws.String("business_id"),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		if v, ok := item["business_id"].(*types.AttributeValueMemberS); ok {
			ids = append(ids, v.Value)
		}
	}
	return ids, nil
}

// Put records an assignment. Idempotent: the pair is the full primary key.
func (r *AssignmentRepo) Put(ctx context.Context, userID, businessID string) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      compositeKey("user_id", userID, "business_id", businessID),
	})
	return err
}
