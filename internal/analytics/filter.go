package analytics

import (
	"strings"

	"github.com/smartalloc/portal/internal/model"
)

// FilterAllocations returns the allocations matching the query: a record
// matches when its candidate name, internship title, or category contains
// the query, compared case-insensitively. An empty query returns the input
// unchanged. Order is preserved; the input is never mutated.
func FilterAllocations(allocations []model.Allocation, query string) []model.Allocation {
	if query == "" {
		return allocations
	}

	q := strings.ToLower(query)
	out := make([]model.Allocation, 0, len(allocations))
	for _, alloc := range allocations {
		if strings.Contains(strings.ToLower(alloc.Candidate), q) ||
			strings.Contains(strings.ToLower(alloc.Internship), q) ||
			strings.Contains(strings.ToLower(alloc.Category), q) {
			out = append(out, alloc)
		}
	}
	return out
}
