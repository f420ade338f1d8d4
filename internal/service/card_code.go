package service

import (
	"math/rand/v2"
	"strings"
)

const (
	CardCodePrefix = "RC-"

	cardCodeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	cardCodePayloadLen = 16
	cardCodeGroupLen   = 8
)

// CodeGenerator draws card codes of the form RC-XXXXXXXX-XXXXXXXX. Symbols are
// sampled independently with replacement; codes are not security tokens, so a
// non-cryptographic source is fine. Not safe for concurrent use when built
// with a custom source.
type CodeGenerator struct {
	intN func(n int) int
}

// NewCodeGenerator uses src when non-nil, otherwise the runtime-seeded global
// source.
func NewCodeGenerator(src rand.Source) *CodeGenerator {
	if src == nil {
		return &CodeGenerator{intN: rand.IntN}
	}
	return &CodeGenerator{intN: rand.New(src).IntN}
}

func (g *CodeGenerator) Generate() string {
	payload := make([]byte, cardCodePayloadLen)
	for i := range payload {
		payload[i] = cardCodeAlphabet[g.intN(len(cardCodeAlphabet))]
	}

	var b strings.Builder
	b.Grow(len(CardCodePrefix) + cardCodePayloadLen + 1)
	b.WriteString(CardCodePrefix)
	b.Write(payload[:cardCodeGroupLen])
	b.WriteByte('-')
	b.Write(payload[cardCodeGroupLen:])
	return b.String()
}

var defaultCodeGenerator = NewCodeGenerator(nil)

func GenerateCardCode() string {
	return defaultCodeGenerator.Generate()
}
