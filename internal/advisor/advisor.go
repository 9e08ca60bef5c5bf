// Package advisor wraps the external text-advisory service that annotates
// issues with a suggested priority or a manager-facing summary. Advisory
// output is a convenience, never load-bearing: every failure degrades to a
// documented fallback value and is never surfaced as an error.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/omnitrack/omnitrack/internal/apperrors"
	"github.com/omnitrack/omnitrack/internal/models"
)

// SummaryFallback is returned by Summarize when the advisory call fails.
const SummaryFallback = "Error generating summary."

// EmptySummary is returned by Summarize when the call succeeds but the
// response carries no text.
const EmptySummary = "No summary available."

// PriorityFallback is returned by SuggestPriority when the response does
// not match any priority label or the call fails.
const PriorityFallback = models.PriorityMedium

// DefaultTimeout bounds a single advisory call.
const DefaultTimeout = 15 * time.Second

// messageAPI is the slice of the Anthropic client the advisor needs,
// narrowed so tests can substitute a fake.
type messageAPI interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Client requests free-text assistance from the advisory service.
type Client struct {
	api     messageAPI
	model   anthropic.Model
	timeout time.Duration
}

// NewClient creates an advisor client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:     &client.Messages,
		model:   anthropic.Model(model),
		timeout: DefaultTimeout,
	}
}

// buildSummarizePrompt constructs the prompts for a one-sentence summary.
func buildSummarizePrompt(title, description string) (system, user string) {
	system = "You summarize technical issues. Return a single concise sentence suitable for a manager's quick review. No preamble, no markdown."

	var sb strings.Builder
	sb.WriteString("Summarize the following technical issue into a single concise sentence.\n")
	sb.WriteString("Title: ")
	sb.WriteString(title)
	sb.WriteString("\nDescription: ")
	sb.WriteString(description)
	user = sb.String()
	return
}

// buildPriorityPrompt constructs the prompts for a priority suggestion.
func buildPriorityPrompt(description string) (system, user string) {
	system = "You triage bug/issue reports. Respond with exactly one word: Critical, High, Medium, or Low. No other text."

	var sb strings.Builder
	sb.WriteString("Based on the following bug/issue description, suggest an appropriate Priority level (Critical, High, Medium, Low).\n")
	sb.WriteString("Only return the priority level word.\n")
	sb.WriteString("Description: ")
	sb.WriteString(description)
	user = sb.String()
	return
}

// call makes one advisory request with a per-attempt timeout and a single
// retry. The error is internal; callers map it to a fallback value.
func (c *Client) call(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if ctx.Err() != nil {
			return "", apperrors.AdvisoryUnavailable("advisory call cancelled: %v", ctx.Err())
		}
		text, err := c.callOnce(ctx, system, user, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", apperrors.AdvisoryUnavailable("advisory call failed: %v", lastErr)
}

func (c *Client) callOnce(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.api.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("advisory API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	// A response with no text is a success, not a failure; callers map
	// the empty string to their empty-content value.
	return "", nil
}

// Summarize requests a one-sentence manager-facing summary of the issue.
// On any failure it returns SummaryFallback, never an error; a successful
// response with no text yields EmptySummary.
func (c *Client) Summarize(ctx context.Context, title, description string) string {
	system, user := buildSummarizePrompt(title, description)
	text, err := c.call(ctx, system, user, 256)
	if err != nil {
		return SummaryFallback
	}
	if strings.TrimSpace(text) == "" {
		return EmptySummary
	}
	return text
}

// SuggestPriority requests a priority suggestion for the description and
// normalizes the response to one of the enumerated priority labels. On
// any failure or an unrecognized response it returns PriorityFallback.
func (c *Client) SuggestPriority(ctx context.Context, description string) models.Priority {
	system, user := buildPriorityPrompt(description)
	text, err := c.call(ctx, system, user, 16)
	if err != nil {
		return PriorityFallback
	}
	return NormalizePriority(text)
}

// NormalizePriority maps a raw advisory response to a canonical priority
// label by case-insensitive exact match, falling back to Medium for
// anything else. Degrading to a neutral default rather than guessing
// keeps ambiguous responses from blocking issue creation.
func NormalizePriority(raw string) models.Priority {
	trimmed := strings.TrimSpace(raw)
	for _, p := range models.Priorities {
		if strings.EqualFold(trimmed, string(p)) {
			return p
		}
	}
	return PriorityFallback
}
