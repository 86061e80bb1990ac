package models

const (
	SortAscending  = "asc"
	SortDescending = "desc"

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Filter is one attribute-contains predicate. Filters combine with AND.
type Filter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type FilterRequest struct {
	Filter            []Filter `json:"filter"`
	Limit             int      `json:"limit"`
	ExclusiveStartKey string   `json:"exclusive_start_key"`
	SortBy            string   `json:"sort_by"`
	SortOrder         string   `json:"sort_order"`
}

// Page is one page of a cursor-paginated listing. LastEvaluatedKey is nil
// when there is nothing further to fetch.
type Page[T any] struct {
	Items            []T     `json:"items"`
	LastEvaluatedKey *string `json:"last_evaluated_key"`
	Limit            int     `json:"limit"`
}
