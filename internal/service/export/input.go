package export

import (
	"fmt"
	"sort"
	"time"

	repo "github.com/Additional-Code/florex/internal/repository/order"
	"github.com/Additional-Code/florex/internal/validation"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

// MaxOrdersPerBatch bounds the number of orders in one commit.
const MaxOrdersPerBatch = 1000

// OrdersQuery selects candidate orders by calendar day.
type OrdersQuery struct {
	Start           string `json:"start" query:"start" validate:"required,datetime=2006-01-02"`
	End             string `json:"end,omitempty" query:"end" validate:"omitempty,datetime=2006-01-02"`
	ExcludeExported bool   `json:"exclude_exported" query:"exclude_exported"`
}

// filter validates q and converts it to a repository filter.
func (q OrdersQuery) filter() (repo.ExportFilter, error) {
	if err := validation.Struct(q); err != nil {
		return repo.ExportFilter{}, err
	}
	start, _ := time.Parse(time.DateOnly, q.Start)
	f := repo.ExportFilter{Start: start, ExcludeExported: q.ExcludeExported}
	if q.End != "" {
		end, _ := time.Parse(time.DateOnly, q.End)
		if end.Before(start) {
			return repo.ExportFilter{}, errorbank.Validation("end date is before start date",
				errorbank.WithDetail("end", "end must be on or after start"))
		}
		f.End = &end
	}
	return f, nil
}

// CommitInput is the request to create an export batch.
type CommitInput struct {
	Date     string  `json:"fecha" validate:"required,datetime=2006-01-02"`
	UserID   int64   `json:"usuario_id" validate:"gt=0"`
	OrderIDs []int64 `json:"pedido_ids" validate:"min=1,dive,gt=0"`
}

func (in CommitInput) validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if len(in.OrderIDs) > MaxOrdersPerBatch {
		return errorbank.Validation("too many orders in one export",
			errorbank.WithDetail("pedido_ids", fmt.Sprintf("at most %d orders per export", MaxOrdersPerBatch)))
	}
	return nil
}

// uniqueIDs returns the distinct ids in ascending order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// missing returns the ids of want that are absent from have. Both are sorted.
func missing(want, have []int64) []int64 {
	out := make([]int64, 0)
	j := 0
	for _, id := range want {
		for j < len(have) && have[j] < id {
			j++
		}
		if j < len(have) && have[j] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Paging normalises registry page parameters.
type Paging struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

func (p Paging) normalize(defaultSize, maxSize int) Paging {
	if defaultSize <= 0 {
		defaultSize = 20
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p
}

func (p Paging) offset() int {
	return (p.Page - 1) * p.PageSize
}

func totalPages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}
