package vision

import (
	"context"
	"io"

	"github.com/vbonduro/prakriti/internal/domain"
)

// AssessmentPrompt is the shared prompt used by all vision adapters.
const AssessmentPrompt = `You are helping a municipal cleanup team triage citizen reports.
Look at this photo of a reported waste site and classify the main waste you see.
Respond with exactly one line in the format: category | approximate volume | notes
Use one of these categories: plastic, glass, paper, metal, organic, construction,
e-waste, mixed, none. Use "none" if the site looks clean.`

// WasteAnalyzer reads a report photo and classifies the waste in it.
type WasteAnalyzer interface {
	Assess(ctx context.Context, r io.Reader, mimeType string) (*domain.Assessment, error)
}
