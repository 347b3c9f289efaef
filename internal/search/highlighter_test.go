package search

import (
	"reflect"
	"testing"
)

func TestFindMatches(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		needle string
		want   []Match
	}{
		{"plain", "a cat and a cat", "cat", []Match{{2, 5}, {12, 15}}},
		{"accents", "naïve naive", "naive", []Match{{0, 5}, {6, 11}}},
		{"case", "PDF pdf", "pdf", []Match{{0, 3}, {4, 7}}},
		{"non-overlapping", "aaaa", "aa", []Match{{0, 2}, {2, 4}}},
		{"none", "hello", "world", nil},
		{"empty needle", "hello", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatches([]rune(tt.text), []rune(tt.needle))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindMatches(%q, %q) = %v, want %v", tt.text, tt.needle, got, tt.want)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	text := []rune("hello wonderful world")
	if got := Snippet(text, 6, 15, 3); got != "...lo wonderful wo..." {
		t.Errorf("got %q", got)
	}
	if got := Snippet(text, 0, 5, 100); got != "hello wonderful world" {
		t.Errorf("wide radius should return whole text, got %q", got)
	}
	if got := Snippet([]rune("one\ntwo"), 4, 7, 2); got != "...e two" {
		t.Errorf("got %q", got)
	}
}
