// File: internal/agent/termination_test.go
package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

func defaultTerminationConfig() config.TerminationConfig {
	return config.TerminationConfig{
		CompletionPatterns: []string{
			`task\s+(completed|finished|done|accomplished)`,
			`final\s+(answer|result|summary)`,
		},
		FailurePatterns: []string{
			`cannot\s+(complete|proceed|access|continue)`,
			`blocked\s+by\s+(captcha|security|authentication)`,
			`giving\s+up`,
		},
		RepetitionThreshold: 0.8,
		RepetitionWindow:    3,
	}
}

func newPolicy(t *testing.T) *TerminationPolicy {
	t.Helper()
	p, err := NewTerminationPolicy(defaultTerminationConfig())
	require.NoError(t, err)
	return p
}

func TestNewTerminationPolicyRejectsBadPattern(t *testing.T) {
	cfg := defaultTerminationConfig()
	cfg.FailurePatterns = append(cfg.FailurePatterns, "(")
	_, err := NewTerminationPolicy(cfg)
	assert.Error(t, err)
}

func TestExplicitMarkers(t *testing.T) {
	p := newPolicy(t)

	v := p.Evaluate("TASK_COMPLETED: the form was submitted", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonExplicitSuccess, v.Reason)
	assert.True(t, v.Success)

	v = p.Evaluate("I must stop here. TASK_FAILED: login wall", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonExplicitFailure, v.Reason)
	assert.False(t, v.Success)

	v = p.Evaluate("TASK_ABANDONED: out of ideas", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonExplicitFailure, v.Reason)
}

func TestMarkersDominateHeuristics(t *testing.T) {
	p := newPolicy(t)
	// The text also matches a completion pattern; the failure marker wins.
	v := p.Evaluate("The task completed partially. TASK_FAILED: checkout broken", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonExplicitFailure, v.Reason)
}

func TestHeuristicPatterns(t *testing.T) {
	p := newPolicy(t)

	v := p.Evaluate("The Task Completed without issues.", nil)
	require.NotNil(t, v, "matching is case-insensitive")
	assert.Equal(t, ReasonHeuristicSuccess, v.Reason)
	assert.True(t, v.Success)

	v = p.Evaluate("I cannot proceed past this point.", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonHeuristicFailure, v.Reason)

	v = p.Evaluate("We are blocked by captcha on this page.", nil)
	require.NotNil(t, v)
	assert.Equal(t, ReasonHeuristicFailure, v.Reason)

	assert.Nil(t, p.Evaluate("Clicking the search button next.", nil))
}

func TestRepetitionDetection(t *testing.T) {
	p := newPolicy(t)

	msg := "I will click the blue submit button now"
	near := "I will click the blue submit button again"

	v := p.Evaluate(msg, []string{near})
	require.NotNil(t, v)
	assert.Equal(t, ReasonRepetition, v.Reason)

	assert.Nil(t, p.Evaluate(msg, []string{"Scrolling down to find the pricing section"}))
}

func TestRepetitionWindowLimit(t *testing.T) {
	p := newPolicy(t)
	msg := "I will click the blue submit button now"

	// The repeat is outside the 3-message window.
	recent := []string{
		"first different message entirely",
		"second different message entirely",
		"third different message entirely",
		msg,
	}
	assert.Nil(t, p.Evaluate(msg, recent))
}

func TestEmptyLatestNeverTerminates(t *testing.T) {
	p := newPolicy(t)
	assert.Nil(t, p.Evaluate("", []string{"anything"}))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("a b c", "c b a"))
	assert.Equal(t, 0.0, similarity("a b", "c d"))
	assert.Equal(t, 0.0, similarity("", "a b"))
	assert.InDelta(t, 0.5, similarity("a b c d", "a b x y"), 0.001)
}
