package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPaths(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"single", "/tmp/a.pdf", []string{"/tmp/a.pdf"}},
		{"several", "/tmp/a.pdf  /tmp/b.txt", []string{"/tmp/a.pdf", "/tmp/b.txt"}},
		{"single quoted", `'/tmp/meeting notes.md' /tmp/b.txt`, []string{"/tmp/meeting notes.md", "/tmp/b.txt"}},
		{"double quoted", `"/tmp/q3 review.pdf"`, []string{"/tmp/q3 review.pdf"}},
		{"file uri", "file:///tmp/q3%20review.pdf", []string{"/tmp/q3 review.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPaths(tt.in))
		})
	}
}

func TestSplitPaths_BackslashFollowsPlatform(t *testing.T) {
	got := splitPaths(`C:\Users\me\notes.md`)
	if filepath.Separator == '\\' {
		assert.Equal(t, []string{`C:\Users\me\notes.md`}, got)
		return
	}
	assert.Equal(t, []string{`C:Usersmenotes.md`}, got)
	assert.Equal(t, []string{"/tmp/meeting notes.md"}, splitPaths(`/tmp/meeting\ notes.md`))
}

func TestSplitPaths_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, []string{filepath.Join(home, "docs/a.md")}, splitPaths("~/docs/a.md"))
}
