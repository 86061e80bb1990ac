// Package repository maps the service's record types onto a store.Backend.
// Every repository is built with an explicit backend handle; none of them
// keeps state between calls.
package repository

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/store"
)

type RoleStrategy string

const (
	// RoleStrategyIndex queries the role index. This is the default.
	RoleStrategyIndex RoleStrategy = "index"
	// RoleStrategyScan scans the whole relation table and filters on role.
	RoleStrategyScan RoleStrategy = "scan"
)

func ParseRoleStrategy(s string) (RoleStrategy, error) {
	switch RoleStrategy(s) {
	case RoleStrategyIndex, RoleStrategyScan:
		return RoleStrategy(s), nil
	}
	return "", fmt.Errorf("unknown role query strategy %q", s)
}

type Options struct {
	// ScanBatchSize is the Limit sent with every underlying Query or Scan.
	ScanBatchSize int32
	// ScanMaxRounds caps underlying calls made to fill one filtered page.
	ScanMaxRounds int
	RoleStrategy  RoleStrategy
}

func DefaultOptions() Options {
	return Options{
		ScanBatchSize: 50,
		ScanMaxRounds: 20,
		RoleStrategy:  RoleStrategyIndex,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ScanBatchSize <= 0 {
		o.ScanBatchSize = def.ScanBatchSize
	}
	if o.ScanMaxRounds <= 0 {
		o.ScanMaxRounds = def.ScanMaxRounds
	}
	if o.RoleStrategy == "" {
		o.RoleStrategy = def.RoleStrategy
	}
	return o
}

// storeError passes classified errors through and marks everything else as
// an infrastructure failure.
func storeError(op string, err error) error {
	if apperrors.KindOf(err) != "" {
		return err
	}
	return apperrors.Infrastructure(op, err)
}

func decode[T any](op string, item store.Item) (T, error) {
	var v T
	if err := attributevalue.UnmarshalMap(item, &v); err != nil {
		return v, apperrors.Wrap(apperrors.KindInfrastructure, op, "stored record is malformed", err)
	}
	return v, nil
}

func decodeAll[T any](op string, items []store.Item) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := decode[T](op, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func encode(op string, v any) (store.Item, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, op, "record cannot be stored", err)
	}
	return item, nil
}
