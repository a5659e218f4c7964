// Package judge decides whether two item reports describe the same physical
// object by asking an external LLM for a 0-100 similarity rating. The judge is
// a best-effort enhancement to the lexical scorer: every failure mode (network
// error, timeout, malformed reply) degrades to "not a match" rather than
// surfacing an error into the match scan.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"unicode"
)

// DefaultThreshold is the minimum 0-100 confidence treated as a match.
const DefaultThreshold = 70

// Report is the subset of an item the judge sees.
type Report struct {
	Title       string
	Description string
	Location    string
}

// Judge classifies whether two reports describe the same object.
type Judge interface {
	SameObject(ctx context.Context, a, b Report) bool
}

// New returns an LLMJudge backed by client, or a NoOpJudge when client is nil
// (judge disabled, e.g. no API key configured). A threshold <= 0 selects
// DefaultThreshold.
func New(client *Client, threshold int) Judge {
	if client == nil {
		return &NoOpJudge{}
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &LLMJudge{client: client, threshold: threshold, logger: slog.Default()}
}

// LLMJudge asks the model to rate similarity 0-100 and applies a threshold.
type LLMJudge struct {
	client    *Client
	threshold int
	logger    *slog.Logger
}

// SameObject reports whether the model rates the two reports at or above the
// threshold. Fails closed: any error or unparsable reply counts as no match.
func (j *LLMJudge) SameObject(ctx context.Context, a, b Report) bool {
	resp, err := j.client.GenerateText(ctx, buildPrompt(a, b))
	if err != nil {
		j.logger.Debug("judge call failed, treating as no match", "error", err)
		return false
	}

	confidence := extractConfidence(resp)
	j.logger.Debug("judge verdict", "confidence", confidence, "threshold", j.threshold)
	return confidence >= j.threshold
}

func buildPrompt(a, b Report) string {
	return fmt.Sprintf(`Two campus lost & found reports:

ITEM 1:
Title: %s
Description: %s
Location: %s

ITEM 2:
Title: %s
Description: %s
Location: %s

Are these describing the SAME real-world object?
Return ONLY a number from 0 to 100 representing similarity.
No text.
`, a.Title, a.Description, a.Location, b.Title, b.Description, b.Location)
}

// extractConfidence pulls the first run of digits out of a free-text model
// reply. The model is not a trusted structured-data source: replies may wrap
// the number in prose or markdown. No digits means confidence 0 (reject).
// Values above 100 are clamped.
func extractConfidence(s string) int {
	start := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			return clampConfidence(s[start:i])
		}
	}
	if start != -1 {
		return clampConfidence(s[start:])
	}
	return 0
}

func clampConfidence(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		// Digit run too long for an int; certainly not a 0-100 rating.
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// NoOpJudge never matches. Used when the judge is disabled: borderline
// lexical scores then simply fail to qualify.
type NoOpJudge struct{}

func (n *NoOpJudge) SameObject(_ context.Context, _, _ Report) bool {
	return false
}
