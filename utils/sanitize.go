package utils

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Checklist limits.
const (
	MinItemNameLength = 2
	MaxItemNameLength = 50
	MaxChecklistItems = 50
)

var (
	// ErrTooManyItems is returned when a checklist exceeds MaxChecklistItems after cleanup.
	ErrTooManyItems = fmt.Errorf("checklist may hold at most %d items", MaxChecklistItems)
	// ErrEmptyText is returned when a required name is blank after cleanup.
	ErrEmptyText = errors.New("text is empty")
)

var sanitizer = bluemonday.StrictPolicy()

// CleanText strips markup, applies NFC and collapses runs of whitespace.
func CleanText(input string) string {
	stripped := html.UnescapeString(sanitizer.Sanitize(input))
	return strings.Join(strings.Fields(norm.NFC.String(stripped)), " ")
}

// NormalizeItemName cleans one checklist item name. Names that differ only in
// Unicode composition or spacing normalise to the same string.
func NormalizeItemName(input string) (string, error) {
	name := CleanText(input)
	if name == "" {
		return "", ErrEmptyText
	}
	if n := utf8.RuneCountInString(name); n > MaxItemNameLength {
		return "", fmt.Errorf("item name longer than %d characters", MaxItemNameLength)
	}
	return name, nil
}

// NormalizeChecklist cleans every item, drops ones outside the allowed length and
// de-duplicates while keeping first-seen order.
func NormalizeChecklist(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, raw := range items {
		name := CleanText(raw)
		n := utf8.RuneCountInString(name)
		if n < MinItemNameLength || n > MaxItemNameLength {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) > MaxChecklistItems {
		return nil, ErrTooManyItems
	}
	return out, nil
}
