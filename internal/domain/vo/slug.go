package vo

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slug is the filesystem-safe identifier derived from a resource title.
// Two titles with the same slug refer to the same resource.
type Slug struct {
	value string
}

var (
	ErrEmptySlug = errors.New("title has no letters to build a slug from")
)

// NewSlug builds the kebab-case slug of a title.
//
// Every rune that is neither a Unicode letter nor an ASCII space is dropped,
// the rest is lower-cased with the Unicode full case mapping (final sigma
// and other context rules apply), split on spaces and joined with hyphens:
//
//	NewSlug("Les Misérables: Tome I!") // "les-misérables-tome-i"
//	NewSlug("The   Odyssey")           // "the-odyssey"
//	NewSlug("ΟΔΟΣ ΜΑΣ")                // "οδος-μας"
func NewSlug(title string) (Slug, error) {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if r == ' ' || unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}

	// A Caser keeps state, so each call gets its own.
	lower := cases.Lower(language.Und).String(b.String())

	words := strings.Split(lower, " ")
	kept := words[:0]
	for _, w := range words {
		if w != "" {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return Slug{}, ErrEmptySlug
	}

	return Slug{value: strings.Join(kept, "-")}, nil
}

// MustSlug creates a new Slug, panicking if the title yields no slug.
// Use only when the title is known to contain letters.
func MustSlug(title string) Slug {
	s, err := NewSlug(title)
	if err != nil {
		panic(err)
	}
	return s
}

// String returns the slug text.
func (s Slug) String() string {
	return s.value
}

// IsEmpty returns true for the zero Slug.
func (s Slug) IsEmpty() bool {
	return s.value == ""
}

// FileName returns the slug with the given extension appended.
func (s Slug) FileName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return s.value + ext
}

// Equals checks if two slugs are equal.
func (s Slug) Equals(other Slug) bool {
	return s.value == other.value
}
