package csvio

import (
	"fmt"
	"io"

	"github.com/smartalloc/portal/internal/model"
)

// ReadCandidates decodes a candidates CSV into typed records.
func ReadCandidates(r io.Reader) ([]model.Candidate, error) {
	idx, rows, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, model.Candidate{
			ID:                  field(row, idx, "id"),
			Name:                field(row, idx, "name"),
			Skills:              field(row, idx, "skills"),
			Qualifications:      field(row, idx, "qualifications"),
			LocationPreferences: field(row, idx, "location_preferences"),
			SectorInterests:     field(row, idx, "sector_interests"),
			Category:            field(row, idx, "category"),
			PastInternship:      parseFlag(field(row, idx, "past_internship")),
		})
	}
	return candidates, nil
}

// ReadInternships decodes an internships CSV into typed records.
// A capacity cell that is not a non-negative integer fails the whole file;
// rows that do not conform are rejected rather than propagated untyped.
func ReadInternships(r io.Reader) ([]model.Internship, error) {
	idx, rows, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("internships: %w", err)
	}

	internships := make([]model.Internship, 0, len(rows))
	for i, row := range rows {
		// Row numbers are 1-based and count the header.
		capacity, err := parseCapacity(field(row, idx, "capacity"), i+2)
		if err != nil {
			return nil, fmt.Errorf("internships: %w", err)
		}
		internships = append(internships, model.Internship{
			ID:             field(row, idx, "id"),
			Title:          field(row, idx, "title"),
			RequiredSkills: field(row, idx, "required_skills"),
			Qualifications: field(row, idx, "qualifications"),
			Location:       field(row, idx, "location"),
			Sector:         field(row, idx, "sector"),
			Capacity:       capacity,
		})
	}
	return internships, nil
}
