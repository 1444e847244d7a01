package response

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
	HasMore    bool  `json:"has_more"`
	From       int   `json:"from"`
	To         int   `json:"to"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate slices an already ordered list. From and To are 1-based and
// inclusive; both are zero for an empty page.
func Paginate[T any](items []T, page, pageSize int) ([]T, *Pagination) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	p := &Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int64(totalPages),
		TotalItems: int64(total),
		HasMore:    end < total,
	}
	if end > start {
		p.From = start + 1
		p.To = end
	}
	return items[start:end], p
}
