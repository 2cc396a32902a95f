// Package trigger selects the reaction clip for a chat message or donation.
package trigger

import (
	"strings"

	"github.com/streamreact/companion/internal/domain"
)

// Match returns the first active trigger whose keyword is contained in text,
// ignoring case. triggers must already be ordered by priority descending;
// the order is taken as given so ties keep their persisted order.
//
// Containment is a plain substring test, so a short keyword also matches
// inside a longer word.
func Match(text string, triggers []domain.Trigger) (*domain.Trigger, bool) {
	haystack := strings.ToLower(text)
	for i := range triggers {
		t := &triggers[i]
		if !t.Active || t.Keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(t.Keyword)) {
			return t, true
		}
	}
	return nil, false
}

// FirstInCategory returns the first active trigger of the given category,
// using the same ordering contract as Match.
func FirstInCategory(category string, triggers []domain.Trigger) (*domain.Trigger, bool) {
	for i := range triggers {
		t := &triggers[i]
		if t.Active && t.Category == category {
			return t, true
		}
	}
	return nil, false
}
