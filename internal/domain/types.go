package domain

import (
	"time"

	"github.com/vbonduro/prakriti/internal/geo"
)

// Kind distinguishes a waste sighting from its cleanup confirmation.
type Kind string

const (
	KindBefore Kind = "before"
	KindAfter  Kind = "after"
)

func (k Kind) Valid() bool {
	return k == KindBefore || k == KindAfter
}

// Status is the review state of a report.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusVerified
}

type Report struct {
	ID          int64           `json:"id"`
	Kind        Kind            `json:"kind"`
	Status      Status          `json:"status"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	Description string          `json:"description"`
	Contributor string          `json:"contributor,omitempty"`
	PhotoKey    string          `json:"-"`
	MimeType    string          `json:"mime_type,omitempty"`
	Assessment  *Assessment     `json:"assessment,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Assessment is the photo assessor's reading of the waste in a report photo.
type Assessment struct {
	Category string `json:"category"`
	Volume   string `json:"volume,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Pair joins a before report to the after report judged to show the same
// site cleaned. It is keyed by the before report's id.
type Pair struct {
	ID     int64   `json:"id"`
	Before *Report `json:"before"`
	After  *Report `json:"after"`
}

// ReportFilter narrows a report listing. Zero fields match everything.
type ReportFilter struct {
	Status Status
	Kind   Kind
}
