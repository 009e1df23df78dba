package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "''"},
		{"plain path", "/var/backups/photos", "/var/backups/photos"},
		{"user at host", "backup@nas.local:/srv/data", "backup@nas.local:/srv/data"},
		{"space", "my photos", "'my photos'"},
		{"glob", "*.jpg", "'*.jpg'"},
		{"dollar", "$HOME/data", "'$HOME/data'"},
		{"single quote", "it's", `'it'\''s'`},
		{"semicolon", "a;rm -rf /", `'a;rm -rf /'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShellQuote(tt.input))
		})
	}
}

func TestJoinArgs(t *testing.T) {
	args := []string{"restic", "-r", "/srv/repo", "backup", "/home/my user"}
	assert.Equal(t, "restic -r /srv/repo backup '/home/my user'", JoinArgs(args))
}

func TestJoinArgs_Empty(t *testing.T) {
	assert.Equal(t, "", JoinArgs(nil))
}
