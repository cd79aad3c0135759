package vo

import (
	"errors"
	"testing"
)

func TestNewSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"unicode letters kept", "Les Misérables: Tome I!", "les-misérables-tome-i"},
		{"punctuation stripped", "The Odyssey!", "the-odyssey"},
		{"repeated spaces collapse", "The   Odyssey", "the-odyssey"},
		{"leading and trailing spaces", "  Moby Dick  ", "moby-dick"},
		{"digits dropped", "Ulysses 1922", "ulysses"},
		{"apostrophe joins words", "Alice's Adventures", "alices-adventures"},
		{"tabs are not separators", "War\tand Peace", "warand-peace"},
		{"non latin script", "Война и мир", "война-и-мир"},
		{"single word", "Frankenstein", "frankenstein"},
		{"greek final sigma", "ΟΔΟΣ ΜΑΣ", "οδος-μας"},
		{"greek sigma inside a word", "ΣΟΦΙΑ", "σοφια"},
		{"dotted capital i keeps its dot", "İstanbul Notes", "i\u0307stanbul-notes"},
		{"german sharp s unchanged", "Straße", "straße"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSlug(tt.title)
			if err != nil {
				t.Fatalf("NewSlug(%q) error = %v", tt.title, err)
			}
			if got.String() != tt.want {
				t.Errorf("NewSlug(%q) = %q, want %q", tt.title, got.String(), tt.want)
			}
		})
	}
}

func TestNewSlug_Empty(t *testing.T) {
	for _, title := range []string{"", "   ", "1984", "!!! ???"} {
		_, err := NewSlug(title)
		if !errors.Is(err, ErrEmptySlug) {
			t.Errorf("NewSlug(%q) error = %v, want ErrEmptySlug", title, err)
		}
	}
}

func TestSlug_Equals(t *testing.T) {
	a := MustSlug("The Odyssey!")
	b := MustSlug("The   Odyssey")
	if !a.Equals(b) {
		t.Errorf("%q should equal %q", a, b)
	}
	if a.Equals(MustSlug("The Iliad")) {
		t.Error("different titles should not be equal")
	}
}

func TestSlug_FileName(t *testing.T) {
	s := MustSlug("Moby Dick")
	tests := []struct {
		ext  string
		want string
	}{
		{".txt", "moby-dick.txt"},
		{"txt", "moby-dick.txt"},
		{"", "moby-dick"},
	}
	for _, tt := range tests {
		if got := s.FileName(tt.ext); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestMustSlug_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustSlug should panic on a title without letters")
		}
	}()
	MustSlug("42")
}
