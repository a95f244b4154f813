package tui

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// splitPaths splits what a terminal pastes when files are dropped onto it:
// whitespace separated paths, optionally quoted, with backslash escapes or
// file:// URIs. Backslash is a path separator, not an escape, on Windows.
func splitPaths(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quote   rune
		escaped bool
		has     bool
	)
	flush := func() {
		if has {
			out = append(out, normalizePath(cur.String()))
		}
		cur.Reset()
		has = false
	}
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
			has = true
		case r == '\\' && quote != '\'' && filepath.Separator != '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			has = true
		case quote == 0 && unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	flush()
	return out
}

func normalizePath(p string) string {
	if strings.HasPrefix(p, "file://") {
		if u, err := url.Parse(p); err == nil && u.Path != "" {
			return u.Path
		}
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
