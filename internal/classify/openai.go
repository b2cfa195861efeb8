package classify

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a precise email classifier for job-related emails.
Assign the email to EXACTLY ONE of the following category keys:

application_confirmed: confirmation that an application was received.
interview_request: recruiter requesting to schedule an interview or providing scheduling links.
interview_reminder: reminders or confirmations for upcoming interviews.
offer: job offer emails, offer letters, verbal offers, or negotiation instructions.
rejected: rejection emails stating the applicant is not moving forward.
assessment: coding tests, online assessments, take-home assignments.
follow_up: recruiter checking in, following up, or asking for updates.
job_alert: job recommendations, alerts about openings, job board notifications.
newsletter: company newsletters, weekly digests, marketing content.
spam: irrelevant, suspicious, non-job content.
uncategorized: ONLY if the email clearly fits no category above.

Priority when several apply:
interview_request > interview_reminder > offer > rejected > assessment >
follow_up > application_confirmed > job_alert > newsletter > spam > uncategorized

Respond with ONLY the category key. No explanation, no extra text, no formatting.`

// completionAPI is the slice of the OpenAI client we use, split out so tests
// can stub the endpoint.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI classifies messages with a chat-completion model.
type OpenAI struct {
	api   completionAPI
	model string
}

type Config struct {
	APIKey string
	Model  string
}

func NewOpenAI(cfg Config) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{api: openai.NewClient(cfg.APIKey), model: model}
}

// newWithAPI is the test seam.
func newWithAPI(api completionAPI, model string) *OpenAI {
	return &OpenAI{api: api, model: model}
}

func (o *OpenAI) Classify(ctx context.Context, msg gmail.Message) (category.Category, error) {
	userPrompt := fmt.Sprintf("Subject: %s\nFrom: %s\nSnippet: %s",
		msg.Subject, msg.Sender, truncate(msg.Snippet, 2000))

	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   16,
		Temperature: 0,
	})
	if err != nil {
		return category.Uncategorized, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return category.Uncategorized, fmt.Errorf("chat completion: empty response")
	}

	cat, _ := category.Parse(cleanResponse(resp.Choices[0].Message.Content))
	return cat, nil
}

// cleanResponse strips the formatting models add despite instructions.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSuffix(s, ".")
	return strings.ToLower(strings.TrimSpace(s))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

var _ Classifier = (*OpenAI)(nil)
