package model

// Pagination defaults.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a 1-based offset/limit page request.
type Page struct {
	Number int
	Limit  int
}

// Normalize fills in defaults and clamps the limit.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Number - 1) * n.Limit
}

// PageResult is one page of items plus pagination metadata.
type PageResult[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPageResult builds a PageResult for the given page request.
func NewPageResult[T any](items []T, total int, page Page) PageResult[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := (total + page.Limit - 1) / page.Limit
	return PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: pages,
	}
}
