package classify

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const replySystemPrompt = `You are a helpful email assistant. Draft a concise,
professional reply to the email you are given, following the user's
instructions. Respond with the reply body only, no subject line and no
commentary.`

// DraftReply generates a reply body for an email, guided by free-form
// instructions from the user.
func (o *OpenAI) DraftReply(ctx context.Context, emailContent, instructions string) (string, error) {
	if instructions == "" {
		instructions = "Write a short, polite acknowledgement."
	}
	userPrompt := fmt.Sprintf("Original email:\n%s\n\nInstructions for the reply:\n%s",
		truncate(emailContent, 4000), instructions)

	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: replySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("draft reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("draft reply: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
