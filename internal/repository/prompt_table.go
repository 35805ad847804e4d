package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrID     = "id"
	attrPrompt = "prompt"
)

// dynamodbAPI is the minimal DynamoDB interface required by PromptTable.
// Defined here for testability.
type dynamodbAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// PromptTable reads the deploy-time prompt table. Items have a string "id"
// key and a string "prompt" attribute.
type PromptTable struct {
	api       dynamodbAPI
	tableName string
}

func New(api dynamodbAPI, tableName string) (*PromptTable, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &PromptTable{api: api, tableName: tableName}, nil
}

// ListPrompts scans the whole table, following pagination, and returns the
// id to prompt text mapping. It runs once at cold start.
func (p *PromptTable) ListPrompts(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	var startKey map[string]types.AttributeValue
	for {
		page, err := p.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(p.tableName),
			ProjectionExpression: aws.String("#id, #prompt"),
			ExpressionAttributeNames: map[string]string{
				"#id":     attrID,
				"#prompt": attrPrompt,
			},
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListPrompts scan: %w", err)
		}
		if page == nil {
			break
		}
		for _, item := range page.Items {
			id, text, err := itemToPrompt(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListPrompts unmarshal: %w", err)
			}
			out[id] = text
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	return out, nil
}

func itemToPrompt(item map[string]types.AttributeValue) (string, string, error) {
	id, err := strAttr(item, attrID)
	if err != nil {
		return "", "", err
	}
	text, err := strAttr(item, attrPrompt)
	if err != nil {
		return "", "", err
	}
	return id, text, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
