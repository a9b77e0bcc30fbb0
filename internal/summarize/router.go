// Package summarize condenses text with the OpenAI API, either with a single
// chat completion or, for long inputs, through a file-grounded assistant.
package summarize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"example.com/mediascribe/internal/apperr"
)

const DefaultTokenCeiling = 10000

type TextSummarizer interface {
	SummarizeText(ctx context.Context, text string) (string, error)
}

// Router sends text below the token ceiling to the direct path and anything
// at or above it to the assistant path.
type Router struct {
	counter   TokenCounter
	direct    TextSummarizer
	assistant TextSummarizer
	ceiling   int
	log       zerolog.Logger
}

func NewRouter(counter TokenCounter, direct, assistant TextSummarizer, ceiling int, log zerolog.Logger) *Router {
	if ceiling <= 0 {
		ceiling = DefaultTokenCeiling
	}
	return &Router{
		counter:   counter,
		direct:    direct,
		assistant: assistant,
		ceiling:   ceiling,
		log:       log,
	}
}

func (r *Router) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.InvalidInput("Missing text")
	}

	tokens := r.counter.Count(text)
	if tokens >= r.ceiling {
		r.log.Info().Int("tokens", tokens).Int("ceiling", r.ceiling).Msg("using assistant path")
		return r.assistant.SummarizeText(ctx, text)
	}
	r.log.Debug().Int("tokens", tokens).Msg("using direct completion")
	return r.direct.SummarizeText(ctx, text)
}
