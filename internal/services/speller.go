package services

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"garagesale/internal/domain"
)

const (
	maxEditDistance = 2
	minWordLen      = 3
)

type entry struct {
	display string // first spelling seen, accents kept
	count   int
}

// Speller proposes corrections for query words against a vocabulary built
// from the live catalog. Lookups compare accent-folded forms.
type Speller struct {
	vocab map[string]*entry
}

func NewSpeller() *Speller { return &Speller{vocab: map[string]*entry{}} }

// Add feeds every word of text into the vocabulary.
func (s *Speller) Add(text string) {
	for _, w := range words(text) {
		if utf8.RuneCountInString(w) < minWordLen {
			continue
		}
		k := domain.Fold(w)
		if e, ok := s.vocab[k]; ok {
			e.count++
			continue
		}
		s.vocab[k] = &entry{display: w, count: 1}
	}
}

func (s *Speller) Len() int { return len(s.vocab) }

// Correct returns the corrected query and whether any word changed. Words
// that are short, known, or have no candidate within the edit distance are
// kept as typed.
func (s *Speller) Correct(query string) (string, bool) {
	fields := strings.Fields(strings.ToLower(query))
	changed := false
	for i, w := range fields {
		if best, ok := s.lookup(w); ok {
			fields[i] = best
			changed = true
		}
	}
	return strings.Join(fields, " "), changed
}

func (s *Speller) lookup(word string) (string, bool) {
	n := utf8.RuneCountInString(word)
	if n < minWordLen || strings.ContainsAny(word, "0123456789") {
		return "", false
	}
	k := domain.Fold(word)
	if _, ok := s.vocab[k]; ok {
		return "", false
	}
	var (
		best     string
		bestDist = maxEditDistance + 1
		bestCnt  int
	)
	for cand, e := range s.vocab {
		d := utf8.RuneCountInString(cand) - utf8.RuneCountInString(k)
		if d > maxEditDistance || d < -maxEditDistance {
			continue
		}
		dist := levenshtein.ComputeDistance(k, cand)
		if dist > maxEditDistance {
			continue
		}
		if dist < bestDist || dist == bestDist && (e.count > bestCnt || e.count == bestCnt && e.display < best) {
			best, bestDist, bestCnt = e.display, dist, e.count
		}
	}
	return best, best != ""
}
