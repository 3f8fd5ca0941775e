// Package model defines the shared value types for the allocation portal.
// These are plain records with no behavior; every other package consumes them.
package model

// Candidate is one row of the candidates dataset.
type Candidate struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Skills              string `json:"skills"`
	Qualifications      string `json:"qualifications"`
	LocationPreferences string `json:"location_preferences"`
	SectorInterests     string `json:"sector_interests"`

	// Category is a free-text label (e.g. "Rural", "SC") used for grouping
	// in analytics. It carries no semantics beyond its text.
	Category string `json:"category"`

	PastInternship bool `json:"past_internship"`
}

// Internship is one row of the internships dataset.
type Internship struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	RequiredSkills string `json:"required_skills"`
	Qualifications string `json:"qualifications"`
	Location       string `json:"location"`
	Sector         string `json:"sector"`
	Capacity       int    `json:"capacity"`
}

// Allocation is one candidate-to-internship match returned by the remote
// allocation service. Immutable once received.
//
// Scores arrive pre-scaled to the 0-100 range. Category and Location are
// optional on the wire; empty values bucket under "N/A" in analytics.
type Allocation struct {
	Candidate  string  `json:"Candidate"`
	Internship string  `json:"Internship"`
	Score      float64 `json:"Score"`
	Reason     string  `json:"Reason"`
	Category   string  `json:"Category,omitempty"`
	Location   string  `json:"Location,omitempty"`
}

// AllocationBatch is the full payload held after a successful allocation
// round. The candidate and internship datasets are retained client-side from
// the upload step because the service response carries only the allocations,
// while analytics cross-references all three.
//
// A batch is created atomically from a successful response and discarded
// whole on reset; there is no partial-update path.
type AllocationBatch struct {
	Allocations []Allocation `json:"allocations"`
	Candidates  []Candidate  `json:"candidates"`
	Internships []Internship `json:"internships"`
}
