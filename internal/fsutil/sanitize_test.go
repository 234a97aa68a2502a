package fsutil

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		// une clé de magasin passe telle quelle, casse comprise
		{"clé de magasin", "podcast_player_marks", "podcast_player_marks"},
		{"caractères interdits", `a/b\c:d?e`, "a b c d e"},
		{"espaces multiples", "a   b\t c", "a b c"},
		{"points terminaux", "nom...", "nom"},
		{"vide", "", "untitled"},
		{"uniquement interdit", "///", "untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}

	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != maxNameLen {
		t.Errorf("longueur = %d; want %d", len(got), maxNameLen)
	}
}
