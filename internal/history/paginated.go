package history

import "github.com/bryanwahyu/market-intel/internal/domain/report"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*report.IntelligenceReport `json:"data"`
	Page       int                          `json:"page"`
	PageSize   int                          `json:"pageSize"`
	Total      int64                        `json:"totalItems"`
	TotalPages int                          `json:"totalPages"`
}

// Page slices the newest-first list. page starts at 1; out of range pages are empty.
func (s *Store) Page(page, pageSize int) PaginatedResult {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	all := s.List()
	total := len(all)
	res := PaginatedResult{
		Data:       []*report.IntelligenceReport{},
		Page:       page,
		PageSize:   pageSize,
		Total:      int64(total),
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	// compare page counts, not offsets: (page-1)*pageSize overflows for huge pages
	if page > res.TotalPages {
		return res
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	res.Data = all[start:end]
	return res
}
