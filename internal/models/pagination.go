package models

const (
	DefaultPageSize    = 20
	DefaultMessagePage = 50
	MaxPageSize        = 100
)

// Pagination is attached to list responses.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// NewPagination computes HasMore from the returned page size.
func NewPagination(total, limit, offset, returned int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+returned < total,
	}
}

// ClampPage normalizes limit and offset.
func ClampPage(limit, offset, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
