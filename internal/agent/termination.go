// File: internal/agent/termination.go
package agent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Explicit markers the system prompt instructs the model to emit. They
// dominate every heuristic.
const (
	MarkerCompleted = "TASK_COMPLETED:"
	MarkerFailed    = "TASK_FAILED:"
	MarkerAbandoned = "TASK_ABANDONED:"
)

// TerminationPolicy decides when a task is over based on the model's
// commentary. Evaluation order: explicit markers, heuristic patterns,
// repetition.
type TerminationPolicy struct {
	completion []*regexp.Regexp
	failure    []*regexp.Regexp
	threshold  float64
	window     int
}

func NewTerminationPolicy(cfg config.TerminationConfig) (*TerminationPolicy, error) {
	compile := func(patterns []string) ([]*regexp.Regexp, error) {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("invalid termination pattern %q: %w", p, err)
			}
			out = append(out, re)
		}
		return out, nil
	}

	completion, err := compile(cfg.CompletionPatterns)
	if err != nil {
		return nil, err
	}
	failure, err := compile(cfg.FailurePatterns)
	if err != nil {
		return nil, err
	}

	return &TerminationPolicy{
		completion: completion,
		failure:    failure,
		threshold:  cfg.RepetitionThreshold,
		window:     cfg.RepetitionWindow,
	}, nil
}

// Window is how many recent assistant messages Evaluate wants to see.
func (p *TerminationPolicy) Window() int {
	return p.window
}

// Evaluate inspects the latest assistant message against the recent ones.
// It returns nil when the task should continue.
func (p *TerminationPolicy) Evaluate(latest string, recent []string) *Verdict {
	if latest == "" {
		return nil
	}

	switch {
	case strings.Contains(latest, MarkerCompleted):
		return &Verdict{Reason: ReasonExplicitSuccess, Success: true}
	case strings.Contains(latest, MarkerFailed):
		return &Verdict{Reason: ReasonExplicitFailure}
	case strings.Contains(latest, MarkerAbandoned):
		return &Verdict{Reason: ReasonExplicitFailure}
	}

	for _, re := range p.completion {
		if re.MatchString(latest) {
			return &Verdict{Reason: ReasonHeuristicSuccess, Success: true}
		}
	}
	for _, re := range p.failure {
		if re.MatchString(latest) {
			return &Verdict{Reason: ReasonHeuristicFailure}
		}
	}

	limit := p.window
	if limit > len(recent) {
		limit = len(recent)
	}
	for _, prev := range recent[:limit] {
		if similarity(latest, prev) > p.threshold {
			return &Verdict{Reason: ReasonRepetition}
		}
	}
	return nil
}

// similarity is the ratio of shared words to the larger word set. Crude but
// effective at catching a model restating the same plan every turn.
func similarity(a, b string) float64 {
	wordsA := fieldSet(a)
	wordsB := fieldSet(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	common := 0
	for w := range wordsA {
		if wordsB[w] {
			common++
		}
	}
	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	return float64(common) / float64(larger)
}

func fieldSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
