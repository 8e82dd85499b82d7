package browse

import (
	"strings"
	"unicode/utf8"

	"garagesale/internal/domain"
)

// MinSuggestChars is the shortest term that triggers an autocomplete lookup.
const MinSuggestChars = 2

// ShouldSuggest reports whether term is long enough to look up.
func ShouldSuggest(term string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(term)) >= MinSuggestChars
}

// Panel is the autocomplete dropdown.
type Panel struct {
	Open  bool
	Term  string
	Items []domain.Suggestion
	// NoResults asks for an explicit "no results" row instead of a blank panel.
	NoResults bool
	// DidYouMean is a spelling correction worth offering, or "".
	DidYouMean string
}

// BuildPanel shapes a suggestion answer for display.
func BuildPanel(term string, res domain.SuggestionResult) Panel {
	term = strings.TrimSpace(term)
	p := Panel{Open: true, Term: term, Items: res.Suggestions, NoResults: len(res.Suggestions) == 0}
	if res.Suggestion != nil {
		p.DidYouMean = didYouMean(term, *res.Suggestion, res.Suggestions)
	}
	return p
}

func didYouMean(term, fix string, items []domain.Suggestion) string {
	fix = strings.TrimSpace(fix)
	if fix == "" || strings.EqualFold(fix, term) {
		return ""
	}
	for _, s := range items {
		if strings.EqualFold(s.Text, fix) {
			return ""
		}
	}
	return fix
}
