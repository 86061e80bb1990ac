package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of *dynamodb.Client the backend uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type DynamoBackend struct {
	client DynamoAPI
	schema Schema
}

func NewDynamoBackend(client DynamoAPI, schema Schema) *DynamoBackend {
	return &DynamoBackend{client: client, schema: schema}
}

func (d *DynamoBackend) GetItem(ctx context.Context, table string, key Key) (Item, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       keyItem(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get item from %s: %w", table, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func (d *DynamoBackend) PutItem(ctx context.Context, table string, item Item, opts ...PutOption) error {
	in := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}
	if collectPutOptions(opts).IfNotExists {
		spec, err := d.schema.Table(table)
		if err != nil {
			return err
		}
		cond := expression.AttributeNotExists(expression.Name(spec.PartitionKey))
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("build put condition: %w", err)
		}
		in.ConditionExpression = expr.Condition()
		in.ExpressionAttributeNames = expr.Names()
	}

	if _, err := d.client.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConditionFailed
		}
		return fmt.Errorf("put item into %s: %w", table, err)
	}
	return nil
}

func (d *DynamoBackend) UpdateItem(ctx context.Context, table string, key Key, changes map[string]any) (Item, error) {
	spec, err := d.schema.Table(table)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return d.GetItem(ctx, table, key)
	}

	var update expression.UpdateBuilder
	for name, value := range changes {
		update = update.Set(expression.Name(name), expression.Value(value))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name(spec.PartitionKey))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build update for %s: %w", table, err)
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       keyItem(key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, nil
		}
		return nil, fmt.Errorf("update item in %s: %w", table, err)
	}
	return out.Attributes, nil
}

func (d *DynamoBackend) DeleteItem(ctx context.Context, table string, key Key) (bool, error) {
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(table),
		Key:          keyItem(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("delete item from %s: %w", table, err)
	}
	return len(out.Attributes) > 0, nil
}

func (d *DynamoBackend) Query(ctx context.Context, in QueryInput) (Page, error) {
	spec, err := d.schema.Table(in.Table)
	if err != nil {
		return Page{}, err
	}
	pkAttr, skAttr := spec.PartitionKey, spec.SortKey
	if in.Index != "" {
		idx, ok := spec.Index(in.Index)
		if !ok {
			return Page{}, fmt.Errorf("table %s has no index %s", in.Table, in.Index)
		}
		pkAttr, skAttr = idx.PartitionKey, idx.SortKey
	}

	keyCond := expression.Key(pkAttr).Equal(expression.Value(in.PartitionValue))
	if in.SortPrefix != "" && skAttr != "" {
		keyCond = keyCond.And(expression.Key(skAttr).BeginsWith(in.SortPrefix))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return Page{}, fmt.Errorf("build key condition: %w", err)
	}

	req := &dynamodb.QueryInput{
		TableName:                 aws.String(in.Table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if in.Index != "" {
		req.IndexName = aws.String(in.Index)
	}
	if in.Limit > 0 {
		req.Limit = aws.Int32(in.Limit)
	}
	if len(in.StartKey) > 0 {
		req.ExclusiveStartKey = keyItem(in.StartKey)
	}

	out, err := d.client.Query(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", in.Table, err)
	}
	return Page{Items: out.Items, LastKey: itemKey(out.LastEvaluatedKey)}, nil
}

func (d *DynamoBackend) Scan(ctx context.Context, in ScanInput) (Page, error) {
	req := &dynamodb.ScanInput{
		TableName: aws.String(in.Table),
	}
	if len(in.Conditions) > 0 {
		var filter expression.ConditionBuilder
		for i, c := range in.Conditions {
			cond, err := conditionBuilder(c)
			if err != nil {
				return Page{}, err
			}
			if i == 0 {
				filter = cond
			} else {
				filter = filter.And(cond)
			}
		}
		expr, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return Page{}, fmt.Errorf("build scan filter: %w", err)
		}
		req.FilterExpression = expr.Filter()
		req.ExpressionAttributeNames = expr.Names()
		req.ExpressionAttributeValues = expr.Values()
	}
	if in.Limit > 0 {
		req.Limit = aws.Int32(in.Limit)
	}
	if len(in.StartKey) > 0 {
		req.ExclusiveStartKey = keyItem(in.StartKey)
	}

	out, err := d.client.Scan(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("scan %s: %w", in.Table, err)
	}
	return Page{Items: out.Items, LastKey: itemKey(out.LastEvaluatedKey)}, nil
}

func conditionBuilder(c Condition) (expression.ConditionBuilder, error) {
	switch c.Op {
	case OpContains:
		return expression.Name(c.Attribute).Contains(c.Value), nil
	case OpEquals:
		return expression.Name(c.Attribute).Equal(expression.Value(c.Value)), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("unsupported condition %q", c.Op)
}

// EnsureTables creates any missing table with its indexes and waits for it
// to become active.
func (d *DynamoBackend) EnsureTables(ctx context.Context) error {
	for _, spec := range d.schema.Tables() {
		_, err := d.client.CreateTable(ctx, createTableInput(spec))
		if err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				slog.Debug("table already exists", "table", spec.Name)
				continue
			}
			return fmt.Errorf("create table %s: %w", spec.Name, err)
		}

		slog.Info("creating table", "table", spec.Name)
		waiter := dynamodb.NewTableExistsWaiter(d.client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(spec.Name)}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", spec.Name, err)
		}
	}
	return nil
}

func createTableInput(spec TableSpec) *dynamodb.CreateTableInput {
	attrs := map[string]struct{}{}
	var definitions []types.AttributeDefinition
	define := func(name string) {
		if name == "" {
			return
		}
		if _, seen := attrs[name]; seen {
			return
		}
		attrs[name] = struct{}{}
		definitions = append(definitions, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(spec.Name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema:   keySchema(spec.PartitionKey, spec.SortKey),
	}
	define(spec.PartitionKey)
	define(spec.SortKey)

	for _, idx := range spec.Indexes {
		define(idx.PartitionKey)
		define(idx.SortKey)
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchema(idx.PartitionKey, idx.SortKey),
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	in.AttributeDefinitions = definitions
	return in
}

func keySchema(partition, sort string) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{
		{AttributeName: aws.String(partition), KeyType: types.KeyTypeHash},
	}
	if sort != "" {
		schema = append(schema, types.KeySchemaElement{AttributeName: aws.String(sort), KeyType: types.KeyTypeRange})
	}
	return schema
}
