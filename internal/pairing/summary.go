package pairing

import "github.com/vbonduro/prakriti/internal/domain"

// Counts are the dashboard totals derived from a report snapshot.
type Counts struct {
	// Pending is the number of pending before reports still waiting for a
	// matching after photo.
	Pending int `json:"pending"`
	// Completed is the number of pending pairs: the site was photographed
	// clean and awaits review.
	Completed int `json:"completed"`
	// Verified is the number of approved pairs.
	Verified int `json:"verified"`
}

// Summary is a full pairing snapshot for the review dashboard.
type Summary struct {
	Counts        Counts           `json:"counts"`
	PendingPairs  []domain.Pair    `json:"pending_pairs"`
	VerifiedPairs []domain.Pair    `json:"verified_pairs"`
	Unpaired      []*domain.Report `json:"unpaired"`
}

// Summarize recomputes pairs for both statuses and derives the counts.
func (m Matcher) Summarize(reports []*domain.Report) Summary {
	pending := m.FindMatchingPairs(reports, domain.StatusPending)
	verified := m.FindMatchingPairs(reports, domain.StatusVerified)
	unpaired := UnpairedBefores(reports, domain.StatusPending, pending)

	return Summary{
		Counts: Counts{
			Pending:   len(unpaired),
			Completed: len(pending),
			Verified:  len(verified),
		},
		PendingPairs:  pending,
		VerifiedPairs: verified,
		Unpaired:      unpaired,
	}
}
