// Package ddbfake is a hand-rolled, in-memory stand-in for
// backend/dynamodb.DBClient, built the same way the teacher's main.go
// frames its DBClient seam: "defines the interface for DynamoDB
// operations, making the app testable." It understands only the
// expression shapes the adapter itself builds (a single key-equality
// Query, a comma-separated SET of top-level attributes plus a
// single-field equality Condition on Update), not arbitrary DynamoDB expression syntax, so it is a test
// double for this one adapter, not a general DynamoDB emulator.
package ddbfake

import (
	"context"
	"reflect"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client implements backend/dynamodb.DBClient over an in-memory row map.
type Client struct {
	rows map[string]map[string]types.AttributeValue
}

// New returns an empty fake table.
func New() *Client {
	return &Client{rows: map[string]map[string]types.AttributeValue{}}
}

func rowKey(pk, sk string) string { return pk + "\x00" + sk }

func attrString(av types.AttributeValue) string {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok || s == nil {
		return ""
	}
	return s.Value
}

func (c *Client) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	pk := attrString(params.Key["PK"])
	sk := attrString(params.Key["SK"])
	row, ok := c.rows[rowKey(pk, sk)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneAV(row)}, nil
}

func (c *Client) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	pk := attrString(params.Item["PK"])
	sk := attrString(params.Item["SK"])
	c.rows[rowKey(pk, sk)] = cloneAV(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (c *Client) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	pk := attrString(params.Key["PK"])
	sk := attrString(params.Key["SK"])
	delete(c.rows, rowKey(pk, sk))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (c *Client) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	// the adapter's only key condition is PK == <collection>; with exactly
	// one name/value pair in play, pull out whichever placeholder holds it.
	var wantPK string
	for _, v := range params.ExpressionAttributeValues {
		wantPK = attrString(v)
	}
	var keys []string
	for k, row := range c.rows {
		if attrString(row["PK"]) == wantPK {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		items = append(items, cloneAV(c.rows[k]))
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (c *Client) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	pk := attrString(params.Key["PK"])
	sk := attrString(params.Key["SK"])
	key := rowKey(pk, sk)
	row, ok := c.rows[key]
	if !ok {
		row = map[string]types.AttributeValue{"PK": params.Key["PK"], "SK": params.Key["SK"]}
	}
	if params.ConditionExpression != nil {
		if !evalEquality(*params.ConditionExpression, row, params.ExpressionAttributeNames, params.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("the conditional request failed")}
		}
	}
	applySetExpression(*params.UpdateExpression, row, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	c.rows[key] = row
	return &dynamodb.UpdateItemOutput{}, nil
}

func (c *Client) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	// validate every condition before mutating anything, matching DynamoDB's
	// genuine all-or-nothing TransactWriteItems semantics.
	for _, it := range params.TransactItems {
		if it.Update != nil && it.Update.ConditionExpression != nil {
			pk := attrString(it.Update.Key["PK"])
			sk := attrString(it.Update.Key["SK"])
			row := c.rows[rowKey(pk, sk)]
			if !evalEquality(*it.Update.ConditionExpression, row, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues) {
				return nil, &types.TransactionCanceledException{Message: strPtr("ConditionalCheckFailed")}
			}
		}
	}
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			pk := attrString(it.Put.Item["PK"])
			sk := attrString(it.Put.Item["SK"])
			c.rows[rowKey(pk, sk)] = cloneAV(it.Put.Item)
		case it.Delete != nil:
			pk := attrString(it.Delete.Key["PK"])
			sk := attrString(it.Delete.Key["SK"])
			delete(c.rows, rowKey(pk, sk))
		case it.Update != nil:
			pk := attrString(it.Update.Key["PK"])
			sk := attrString(it.Update.Key["SK"])
			key := rowKey(pk, sk)
			row, ok := c.rows[key]
			if !ok {
				row = map[string]types.AttributeValue{"PK": it.Update.Key["PK"], "SK": it.Update.Key["SK"]}
			}
			applySetExpression(*it.Update.UpdateExpression, row, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues)
			c.rows[key] = row
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// evalEquality handles the one condition shape the adapter emits: a single
// "#name = :value" equality.
func evalEquality(expr string, row map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) bool {
	parts := strings.SplitN(expr, "=", 2)
	if len(parts) != 2 {
		return false
	}
	name := resolveName(strings.TrimSpace(parts[0]), names)
	want := values[strings.TrimSpace(parts[1])]
	return reflect.DeepEqual(row[name], want)
}

// applySetExpression handles the one update shape the adapter emits: "SET
// #a = :x, #b = :y".
func applySetExpression(expr string, row map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(expr), "SET"))
	for _, assign := range strings.Split(body, ",") {
		kv := strings.SplitN(assign, "=", 2)
		if len(kv) != 2 {
			continue
		}
		name := resolveName(strings.TrimSpace(kv[0]), names)
		row[name] = values[strings.TrimSpace(kv[1])]
	}
}

func resolveName(placeholder string, names map[string]string) string {
	if n, ok := names[placeholder]; ok {
		return n
	}
	return placeholder
}

func cloneAV(in map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
