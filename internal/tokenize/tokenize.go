// Package tokenize provides the default word/sentence tokenizer the
// manifold engine ingests text through. It implements
// interfaces.Tokenizer; callers may swap in their own implementation.
package tokenize

import (
	"regexp"
	"strings"

	"github.com/manifold-labs/manifold/internal/interfaces"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}[\p{L}\p{N}_-]*`)
	sentenceRe = regexp.MustCompile(`[.!?]+\s+`)
)

// Default is the word-boundary regex tokenizer: lowercase words, sentences
// split on runs of .!? followed by whitespace.
type Default struct{}

// Tokenize implements interfaces.Tokenizer.
func (Default) Tokenize(text string) []interfaces.Token {
	return Tokenize(text)
}

// Tokenize splits text into (word, sentence_index) pairs. Empty text
// yields an empty slice.
func Tokenize(text string) []interfaces.Token {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var tokens []interfaces.Token
	sentenceIndex := 0
	start := 0
	bounds := sentenceRe.FindAllStringIndex(text, -1)
	for _, b := range bounds {
		sentence := text[start:b[0]]
		tokens = append(tokens, wordsInSentence(sentence, sentenceIndex)...)
		sentenceIndex++
		start = b[1]
	}
	tokens = append(tokens, wordsInSentence(text[start:], sentenceIndex)...)
	return tokens
}

func wordsInSentence(sentence string, sentenceIndex int) []interfaces.Token {
	matches := wordRe.FindAllString(sentence, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]interfaces.Token, 0, len(matches))
	for _, w := range matches {
		out = append(out, interfaces.Token{Word: strings.ToLower(w), SentenceIndex: sentenceIndex})
	}
	return out
}
