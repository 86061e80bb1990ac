package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/farellandr/userevents/internal/apperrors"
	"github.com/farellandr/userevents/internal/models"
	"github.com/farellandr/userevents/internal/store"
)

// scanRequest is a validated filtered page request.
type scanRequest struct {
	conditions []store.Condition
	limit      int
	start      store.Key
	sortBy     string
	sortOrder  string
}

// newScanRequest checks a client request against the attribute names a
// table allows and its key schema. Filters with a blank value are dropped.
func newScanRequest(op string, table store.TableSpec, req models.FilterRequest, allowed []string) (scanRequest, error) {
	limit, err := pageLimit(op, req.Limit)
	if err != nil {
		return scanRequest{}, err
	}

	var conds []store.Condition
	for _, f := range req.Filter {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		if !slices.Contains(allowed, f.Field) {
			return scanRequest{}, apperrors.Validation(op, fmt.Sprintf("cannot filter on field %q", f.Field))
		}
		conds = append(conds, store.Contains(f.Field, f.Value))
	}

	if req.SortBy != "" && !slices.Contains(allowed, req.SortBy) {
		return scanRequest{}, apperrors.Validation(op, fmt.Sprintf("cannot sort on field %q", req.SortBy))
	}
	order := strings.ToLower(req.SortOrder)
	switch order {
	case "":
		order = models.SortAscending
	case models.SortAscending, models.SortDescending:
	default:
		return scanRequest{}, apperrors.Validation(op, fmt.Sprintf("sort_order must be %q or %q", models.SortAscending, models.SortDescending))
	}

	start, err := table.DecodeCursor(req.ExclusiveStartKey)
	if err != nil {
		return scanRequest{}, err
	}

	return scanRequest{
		conditions: conds,
		limit:      limit,
		start:      start,
		sortBy:     req.SortBy,
		sortOrder:  order,
	}, nil
}

func pageLimit(op string, limit int) (int, error) {
	if limit == 0 {
		return models.DefaultPageLimit, nil
	}
	if limit < 1 || limit > models.MaxPageLimit {
		return 0, apperrors.Validation(op, fmt.Sprintf("limit must be between 1 and %d", models.MaxPageLimit))
	}
	return limit, nil
}

// scanAccumulate fills one page of up to req.limit matching items by issuing
// sequential scans of opts.ScanBatchSize, at most opts.ScanMaxRounds of them.
// When the page fills mid-batch the returned key points at the last item
// kept, so the next page starts right after it. Sorting happens only after
// the page is complete.
func scanAccumulate(ctx context.Context, backend store.Backend, table store.TableSpec, req scanRequest, opts Options) ([]store.Item, store.Key, error) {
	var (
		items  []store.Item
		cursor = req.start
	)
	for round := 0; round < opts.ScanMaxRounds; round++ {
		page, err := backend.Scan(ctx, store.ScanInput{
			Table:      table.Name,
			Conditions: req.conditions,
			Limit:      opts.ScanBatchSize,
			StartKey:   cursor,
		})
		if err != nil {
			return nil, nil, storeError("scan "+table.Name, err)
		}

		for i, item := range page.Items {
			items = append(items, item)
			if len(items) < req.limit {
				continue
			}
			var next store.Key
			if i < len(page.Items)-1 || page.LastKey != nil {
				next = table.KeyOf(item)
			}
			sortItems(items, req.sortBy, req.sortOrder)
			return items, next, nil
		}

		cursor = page.LastKey
		if cursor == nil {
			break
		}
	}
	sortItems(items, req.sortBy, req.sortOrder)
	return items, cursor, nil
}

// sortItems orders items by one attribute, numerically when both values
// parse as numbers and as strings otherwise. Missing attributes sort as "".
func sortItems(items []store.Item, field, order string) {
	if field == "" {
		return
	}
	slices.SortStableFunc(items, func(a, b store.Item) int {
		c := compareValues(store.StringAttr(a, field), store.StringAttr(b, field))
		if order == models.SortDescending {
			return -c
		}
		return c
	})
}

func compareValues(a, b string) int {
	af, aErr := strconv.ParseFloat(a, 64)
	bf, bErr := strconv.ParseFloat(b, 64)
	if aErr == nil && bErr == nil {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(a, b)
}

func cursorToken(key store.Key) *string {
	if key == nil {
		return nil
	}
	token := store.EncodeCursor(key)
	return &token
}
