package summarize

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"example.com/mediascribe/internal/apperr"
)

const (
	promptInstructions = "Summarize the lecture content inside the prompt into 15%. The summary must less than 1000 tokens."
	fileInstructions   = "Summarize the lecture content inside the file into 15%. The summary must less than 1000 tokens."
	fileRequest        = "Summarize the content of the file."
)

type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Direct summarizes with one chat completion.
type Direct struct {
	client ChatClient
	model  string
}

func NewDirect(client ChatClient, model string) *Direct {
	if model == "" {
		model = openai.GPT4o
	}
	return &Direct{client: client, model: model}
}

func (d *Direct) SummarizeText(ctx context.Context, text string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: promptInstructions},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", apperr.Provider(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Provider(errors.New("completion returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
