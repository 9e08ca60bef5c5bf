package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/omnitrack/internal/models"
)

// Scripted fakeAPI responses: errResponse fails the call, emptyResponse
// succeeds with no text content.
const (
	errResponse   = "\x00err"
	emptyResponse = "\x00empty"
)

// fakeAPI scripts message responses for the client under test.
type fakeAPI struct {
	calls     int
	responses []string // one entry per call
}

func (f *fakeAPI) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) || f.responses[i] == errResponse {
		return nil, errors.New("boom")
	}
	if f.responses[i] == emptyResponse {
		return &anthropic.Message{}, nil
	}
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: f.responses[i]},
		},
	}, nil
}

func newFakeClient(responses ...string) (*Client, *fakeAPI) {
	api := &fakeAPI{responses: responses}
	return &Client{api: api, model: "test-model", timeout: time.Second}, api
}

func TestBuildSummarizePrompt(t *testing.T) {
	system, user := buildSummarizePrompt("Login crash", "The app crashes at login.")

	assert.Contains(t, system, "single concise sentence")
	assert.Contains(t, user, "Title: Login crash")
	assert.Contains(t, user, "Description: The app crashes at login.")
}

func TestBuildPriorityPrompt(t *testing.T) {
	system, user := buildPriorityPrompt("Data loss on save")

	for _, p := range models.Priorities {
		assert.Contains(t, system, string(p))
	}
	assert.Contains(t, user, "Data loss on save")
	assert.Contains(t, user, "Only return the priority level word.")
}

func TestSummarize(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c, api := newFakeClient("Users cannot log in on iOS.")
		got := c.Summarize(context.Background(), "Login crash", "Crashes at login")
		assert.Equal(t, "Users cannot log in on iOS.", got)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("failure falls back after retry", func(t *testing.T) {
		c, api := newFakeClient(errResponse, errResponse)
		got := c.Summarize(context.Background(), "t", "d")
		assert.Equal(t, SummaryFallback, got)
		assert.Equal(t, 2, api.calls, "one retry, then give up")
	})

	t.Run("retry succeeds", func(t *testing.T) {
		c, api := newFakeClient(errResponse, "Second time lucky.")
		got := c.Summarize(context.Background(), "t", "d")
		assert.Equal(t, "Second time lucky.", got)
		assert.Equal(t, 2, api.calls)
	})

	t.Run("empty response is not an error", func(t *testing.T) {
		c, api := newFakeClient(emptyResponse)
		got := c.Summarize(context.Background(), "t", "d")
		assert.Equal(t, EmptySummary, got)
		assert.Equal(t, 1, api.calls, "no retry for a successful empty response")
	})

	t.Run("cancelled context", func(t *testing.T) {
		c, api := newFakeClient("never used")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		got := c.Summarize(ctx, "t", "d")
		assert.Equal(t, SummaryFallback, got)
		assert.Zero(t, api.calls, "no call once the context is dead")
	})
}

func TestSuggestPriority(t *testing.T) {
	t.Run("exact label", func(t *testing.T) {
		c, _ := newFakeClient("High")
		assert.Equal(t, models.PriorityHigh, c.SuggestPriority(context.Background(), "d"))
	})

	t.Run("case and whitespace tolerated", func(t *testing.T) {
		c, _ := newFakeClient("  critical\n")
		assert.Equal(t, models.PriorityCritical, c.SuggestPriority(context.Background(), "d"))
	})

	t.Run("unrecognized response falls back to Medium", func(t *testing.T) {
		c, _ := newFakeClient("Probably High, maybe Critical")
		assert.Equal(t, PriorityFallback, c.SuggestPriority(context.Background(), "d"))
	})

	t.Run("failure falls back to Medium", func(t *testing.T) {
		c, _ := newFakeClient(errResponse, errResponse)
		assert.Equal(t, PriorityFallback, c.SuggestPriority(context.Background(), "d"))
	})

	t.Run("empty response falls back to Medium", func(t *testing.T) {
		c, _ := newFakeClient(emptyResponse)
		assert.Equal(t, PriorityFallback, c.SuggestPriority(context.Background(), "d"))
	})
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want models.Priority
	}{
		{"Critical", models.PriorityCritical},
		{"HIGH", models.PriorityHigh},
		{"medium", models.PriorityMedium},
		{" Low ", models.PriorityLow},
		{"", models.PriorityMedium},
		{"P1", models.PriorityMedium},
		{"high priority", models.PriorityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePriority(tt.in), "input %q", tt.in)
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient("key", "test-model")
	require.NotNil(t, c)
	assert.Equal(t, anthropic.Model("test-model"), c.model)
	assert.Equal(t, DefaultTimeout, c.timeout)
}
