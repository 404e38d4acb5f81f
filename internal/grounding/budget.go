package grounding

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	"github.com/stayline/concierge-gateway/internal/config"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

func getEncoder() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("grounding: tokenizer unavailable, using char estimate")
			return
		}
		encoder = enc
	})
	return encoder
}

// trimToTokenBudget cuts the document at the token budget, at a line
// boundary so no block is left half-rendered. Falls back to a chars/token
// estimate when the tokenizer can't load its vocabulary.
func trimToTokenBudget(text string, budget int) string {
	if budget <= 0 {
		return text
	}

	enc := getEncoder()
	if enc == nil {
		maxChars := budget * config.TokenEstimateRatio
		if len(text) <= maxChars {
			return text
		}
		return cutAtLine(text, maxChars)
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	cut := enc.Decode(tokens[:budget])
	return cutAtLine(text, len(cut))
}

// cutAtLine trims to maxChars, then back to the previous newline.
func cutAtLine(text string, maxChars int) string {
	if maxChars >= len(text) {
		return text
	}
	cut := text[:maxChars]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		cut = cut[:idx]
	}
	return cut
}
