// Package corpus turns book records into the tokenized documents an embedder trains on.
package corpus

import (
	"iter"
	"strings"

	"trueneutral/internal/domain"
)

// Tagged yields one tagged document per book, tags counting up from 0 in input order.
// The sequence is lazy and can be ranged over again to restart from the first record.
// Iteration stops after the first book without a summary.
func Tagged(books []domain.Book) iter.Seq2[domain.TaggedDocument, error] {
	return func(yield func(domain.TaggedDocument, error) bool) {
		tag := 0
		for i, b := range books {
			words, err := tokens(i, b)
			if err != nil {
				yield(domain.TaggedDocument{}, err)
				return
			}
			if !yield(domain.TaggedDocument{Words: words, Tag: tag}, nil) {
				return
			}
			tag++
		}
	}
}

// Tokens yields the token list of every book, without tags.
func Tokens(books []domain.Book) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for i, b := range books {
			words, err := tokens(i, b)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(words, nil) {
				return
			}
		}
	}
}

// ReadTagged collects Tagged into a slice.
func ReadTagged(books []domain.Book) ([]domain.TaggedDocument, error) {
	docs := make([]domain.TaggedDocument, 0, len(books))
	for doc, err := range Tagged(books) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadTokens collects Tokens into a slice.
func ReadTokens(books []domain.Book) ([][]string, error) {
	out := make([][]string, 0, len(books))
	for words, err := range Tokens(books) {
		if err != nil {
			return nil, err
		}
		out = append(out, words)
	}
	return out, nil
}

func tokens(index int, b domain.Book) ([]string, error) {
	if strings.TrimSpace(b.Summary) == "" {
		return nil, &domain.MissingFieldError{Index: index, Field: "Summary"}
	}
	return Tokenize(Normalize(b.Summary)), nil
}
