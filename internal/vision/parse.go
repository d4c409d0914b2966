package vision

import (
	"errors"
	"strings"

	"github.com/vbonduro/prakriti/internal/domain"
)

// ErrNoAssessment is returned when a model response has no parsable line.
var ErrNoAssessment = errors.New("no assessment in model response")

var knownCategories = map[string]bool{
	"plastic":      true,
	"glass":        true,
	"paper":        true,
	"metal":        true,
	"organic":      true,
	"construction": true,
	"e-waste":      true,
	"mixed":        true,
	"none":         true,
}

// ParseResponse parses a vision model response in format:
// category | volume | notes. The first line containing a pipe wins;
// categories outside the known set are reported as "mixed" with the model's
// word kept in the notes.
func ParseResponse(raw string) (*domain.Assessment, error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`*")
		if !strings.Contains(line, "|") {
			continue
		}

		var volume, notes string
		parts := strings.SplitN(line, "|", 3)
		category := strings.ToLower(strings.TrimSpace(parts[0]))
		if category == "" {
			continue
		}
		if len(parts) >= 2 {
			volume = strings.TrimSpace(parts[1])
		}
		if len(parts) >= 3 {
			notes = strings.TrimSpace(parts[2])
		}

		if !knownCategories[category] {
			if notes == "" {
				notes = category
			} else {
				notes = category + "; " + notes
			}
			category = "mixed"
		}
		return &domain.Assessment{Category: category, Volume: volume, Notes: notes}, nil
	}
	return nil, ErrNoAssessment
}
