package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// Word caps for generated email copy. The prompts ask for the cap and
// TrimWords enforces it on whatever comes back.
const (
	SubjectWordCap = 10
	BodyWordCap    = 150
)

const subjectSystemPrompt = "You write email subject lines. Respond with only the subject line, " +
	"at most 10 words, no quotes, no trailing punctuation."

const bodySystemPrompt = "You write short, friendly emails. Respond with only the email body: " +
	"a greeting, at most 150 words of content, and a sign-off. No subject line."

// ComposeSubject asks the model for a one-line subject about the topic.
func ComposeSubject(ctx context.Context, c Client, topic string) (string, error) {
	out, err := c.Generate(ctx, GenerationRequest{
		SystemPrompt: subjectSystemPrompt,
		UserPrompt:   fmt.Sprintf("Write a subject line for an email about: %s", topic),
	})
	if err != nil {
		return "", fmt.Errorf("composing subject: %w", err)
	}
	return TrimWords(strings.TrimSpace(out), SubjectWordCap), nil
}

// ComposeBody asks the model for a short email body about the topic.
func ComposeBody(ctx context.Context, c Client, topic string) (string, error) {
	out, err := c.Generate(ctx, GenerationRequest{
		SystemPrompt: bodySystemPrompt,
		UserPrompt:   fmt.Sprintf("Write an email about: %s", topic),
	})
	if err != nil {
		return "", fmt.Errorf("composing body: %w", err)
	}
	return TrimWords(strings.TrimSpace(out), BodyWordCap), nil
}

// TrimWords truncates s to at most n whitespace-separated words.
func TrimWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}
