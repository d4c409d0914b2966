// Package pairing matches before reports to after reports of the same site.
//
// Matching is greedy and order sensitive: before reports are visited in input
// order and each claims the nearest unclaimed after report within the
// threshold. The result is a partial injective mapping; no global optimum is
// attempted.
package pairing

import (
	"math"

	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/geo"
)

// DefaultThresholdMeters is the distance at or under which two reports are
// taken to be the same physical site.
const DefaultThresholdMeters = 50.0

// Matcher pairs reports using a fixed distance threshold. The zero value uses
// DefaultThresholdMeters. A Matcher holds no state between calls and is safe
// for concurrent use.
type Matcher struct {
	ThresholdMeters float64
}

// NewMatcher returns a Matcher for thresholdMeters, falling back to the
// default for non-positive or non-finite values.
func NewMatcher(thresholdMeters float64) Matcher {
	return Matcher{ThresholdMeters: thresholdMeters}
}

func (m Matcher) threshold() float64 {
	t := m.ThresholdMeters
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return DefaultThresholdMeters
	}
	return t
}

// FindMatchingPairs pairs reports with the default threshold.
func FindMatchingPairs(reports []*domain.Report, status domain.Status) []domain.Pair {
	return Matcher{}.FindMatchingPairs(reports, status)
}

// FindMatchingPairs returns the before/after pairs among reports that share
// status, in the order their before halves appear in reports. The input is
// not modified; pairs reference the input reports.
func (m Matcher) FindMatchingPairs(reports []*domain.Report, status domain.Status) []domain.Pair {
	befores, afters := candidates(reports, status)
	limit := m.threshold()

	pairs := make([]domain.Pair, 0)
	consumed := make(map[int64]bool, len(afters))

	for _, before := range befores {
		var match *domain.Report
		best := math.Inf(1)

		for _, after := range afters {
			if consumed[after.ID] {
				continue
			}
			d := geo.DistanceMeters(before.Location, after.Location)
			if d < best && d <= limit {
				best = d
				match = after
			}
		}

		if match != nil {
			consumed[match.ID] = true
			pairs = append(pairs, domain.Pair{ID: before.ID, Before: before, After: match})
		}
	}

	return pairs
}

// UnpairedBefores returns the before reports with status that are not the
// before half of any of pairs, in input order.
func UnpairedBefores(reports []*domain.Report, status domain.Status, pairs []domain.Pair) []*domain.Report {
	paired := make(map[int64]bool, len(pairs))
	for _, p := range pairs {
		paired[p.Before.ID] = true
	}

	befores, _ := candidates(reports, status)
	out := make([]*domain.Report, 0, len(befores))
	for _, r := range befores {
		if !paired[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// UnpairedAfters returns the after reports with status that no pair claimed.
func UnpairedAfters(reports []*domain.Report, status domain.Status, pairs []domain.Pair) []*domain.Report {
	claimed := make(map[int64]bool, len(pairs))
	for _, p := range pairs {
		claimed[p.After.ID] = true
	}

	_, afters := candidates(reports, status)
	out := make([]*domain.Report, 0, len(afters))
	for _, r := range afters {
		if !claimed[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// candidates stable-filters reports into before and after reports with status.
func candidates(reports []*domain.Report, status domain.Status) (befores, afters []*domain.Report) {
	for _, r := range reports {
		if r == nil || r.Status != status {
			continue
		}
		switch r.Kind {
		case domain.KindBefore:
			befores = append(befores, r)
		case domain.KindAfter:
			afters = append(afters, r)
		}
	}
	return befores, afters
}
