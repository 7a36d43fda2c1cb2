package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/issouf7507-dev/codeqr-sub000/internal/validate"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPage         = 100000
)

type Page struct {
	Page     int
	PageSize int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p Page) Limit() int {
	return p.PageSize
}

// Parse reads page and pageSize from query values. Missing values take the
// defaults; out-of-range values are validation errors.
func Parse(q url.Values) (Page, error) {
	p := Page{Page: 1, PageSize: DefaultPageSize}

	if v := strings.TrimSpace(q.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPage {
			return Page{}, validate.Errorf("page", "must be between 1 and %d", MaxPage)
		}
		p.Page = n
	}
	if v := strings.TrimSpace(q.Get("pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPageSize {
			return Page{}, validate.Errorf("pageSize", "must be between 1 and %d", MaxPageSize)
		}
		p.PageSize = n
	}
	return p, nil
}

// Result is the envelope returned by every admin list endpoint.
type Result[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

func NewResult[T any](items []T, total int, p Page) Result[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = (total + p.PageSize - 1) / p.PageSize
	}
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
	}
}
