// Package analytics reduces allocation batches into the grouped summaries
// consumed by the dashboard charts.
//
// Every reducer is pure, order-insensitive, and total over empty input: an
// empty batch yields empty or zero-filled output, never an error. Group
// order follows the first-seen order of each grouping key so that repeated
// renders of the same batch are stable.
package analytics

import (
	"strings"

	"github.com/smartalloc/portal/internal/model"
)

// LabelCount is one group in a distribution.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ScoreBin is one of the five fixed score ranges.
type ScoreBin struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Status is the allocated/unallocated split over a batch.
type Status struct {
	Allocated   int `json:"allocated"`
	Unallocated int `json:"unallocated"`
}

// CapacityRow pairs an internship's declared capacity with the number of
// allocations that matched it.
type CapacityRow struct {
	Internship string `json:"internship"`
	Capacity   int    `json:"capacity"`
	Allocated  int    `json:"allocated"`
}

// Summary holds every aggregation over one batch.
type Summary struct {
	Categories []LabelCount  `json:"categories"`
	Areas      []LabelCount  `json:"areas"`
	Status     Status        `json:"status"`
	Scores     []ScoreBin    `json:"scores"`
	Capacity   []CapacityRow `json:"capacity"`
	Locations  []LabelCount  `json:"locations"`
}

// Summarize runs every reducer over the batch.
func Summarize(batch model.AllocationBatch) Summary {
	return Summary{
		Categories: CategoryDistribution(batch.Candidates),
		Areas:      AreaDistribution(batch.Candidates),
		Status:     AllocationStatus(batch.Candidates, batch.Allocations),
		Scores:     ScoreDistribution(batch.Allocations),
		Capacity:   CapacityUtilization(batch.Internships, batch.Allocations),
		Locations:  LocationDistribution(batch.Allocations),
	}
}

// counter accumulates counts while remembering first-seen key order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) result() []LabelCount {
	out := make([]LabelCount, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, LabelCount{Label: key, Count: c.counts[key]})
	}
	return out
}

// CategoryDistribution counts candidates grouped by trimmed category.
// Empty or whitespace-only categories collapse to "N/A".
func CategoryDistribution(candidates []model.Candidate) []LabelCount {
	c := newCounter()
	for _, cand := range candidates {
		category := strings.TrimSpace(cand.Category)
		if category == "" {
			category = "N/A"
		}
		c.add(category)
	}
	return c.result()
}

// AreaDistribution groups candidates whose category is rural or urban
// (compared case-insensitively) under that value, preserving the casing of
// the first observed instance; all other candidates collapse to "Other".
func AreaDistribution(candidates []model.Candidate) []LabelCount {
	c := newCounter()
	labels := make(map[string]string)
	for _, cand := range candidates {
		raw := strings.TrimSpace(cand.Category)
		key := strings.ToLower(raw)
		if key != "rural" && key != "urban" {
			c.add("Other")
			continue
		}
		if _, seen := labels[key]; !seen {
			labels[key] = raw
		}
		c.add(labels[key])
	}
	return c.result()
}

// AllocationStatus splits a batch into allocated and unallocated counts.
// Unallocated is the candidate count minus the allocation count; a negative
// remainder indicates inconsistent input and is clamped to zero.
func AllocationStatus(candidates []model.Candidate, allocations []model.Allocation) Status {
	unallocated := len(candidates) - len(allocations)
	if unallocated < 0 {
		unallocated = 0
	}
	return Status{Allocated: len(allocations), Unallocated: unallocated}
}

// scoreRanges are the five fixed bins over the 0-100 score scale.
var scoreRanges = [5]string{"0-59", "60-69", "70-79", "80-89", "90-100"}

// ScoreDistribution bins allocations by score. Every allocation lands in
// exactly one bin; out-of-range scores clamp into the nearest bin so the
// bins always partition the input.
func ScoreDistribution(allocations []model.Allocation) []ScoreBin {
	var counts [5]int
	for _, alloc := range allocations {
		counts[scoreBinIndex(alloc.Score)]++
	}
	out := make([]ScoreBin, len(scoreRanges))
	for i, r := range scoreRanges {
		out[i] = ScoreBin{Range: r, Count: counts[i]}
	}
	return out
}

func scoreBinIndex(score float64) int {
	switch {
	case score < 60:
		return 0
	case score < 70:
		return 1
	case score < 80:
		return 2
	case score < 90:
		return 3
	default:
		return 4
	}
}

// CapacityUtilization pairs each internship's declared capacity with the
// number of allocations whose internship title equals its title exactly.
// Output order follows the internships dataset.
func CapacityUtilization(internships []model.Internship, allocations []model.Allocation) []CapacityRow {
	byTitle := make(map[string]int)
	for _, alloc := range allocations {
		byTitle[alloc.Internship]++
	}
	out := make([]CapacityRow, 0, len(internships))
	for _, intern := range internships {
		out = append(out, CapacityRow{
			Internship: intern.Title,
			Capacity:   intern.Capacity,
			Allocated:  byTitle[intern.Title],
		})
	}
	return out
}

// LocationDistribution counts allocations grouped by location, with absent
// or empty locations under "N/A".
func LocationDistribution(allocations []model.Allocation) []LabelCount {
	c := newCounter()
	for _, alloc := range allocations {
		location := strings.TrimSpace(alloc.Location)
		if location == "" {
			location = "N/A"
		}
		c.add(location)
	}
	return c.result()
}
