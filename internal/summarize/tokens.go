package summarize

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

type TokenCounter interface {
	Count(text string) int
}

// Tiktoken counts tokens with an OpenAI BPE encoding such as cl100k_base.
// The encoding tables are downloaded on first use and cached under
// TIKTOKEN_CACHE_DIR when that is set.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("summarize: load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
