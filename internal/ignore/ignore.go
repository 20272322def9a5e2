// Package ignore parses ignore-file lines and matches their globs against
// directory entries.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/pattern"
)

type Pattern struct {
	Raw     string
	Negated bool
	// Anchored patterns are relative to the ignore file's directory: they
	// start with "/" or contain a "/" before the last segment.
	Anchored bool
	DirOnly  bool
	// Glob is the pattern without "!", leading "/" and trailing "/".
	Glob string
}

// Parse reads one line. It reports false for blank lines and comments.
func Parse(line string) (Pattern, bool) {
	text := strings.TrimSpace(line)
	if text == "" || strings.HasPrefix(text, "#") {
		return Pattern{}, false
	}

	p := Pattern{Raw: text}
	if strings.HasPrefix(text, "!") {
		p.Negated = true
		text = text[1:]
	}
	if strings.HasPrefix(text, "/") {
		p.Anchored = true
		text = strings.TrimLeft(text, "/")
	}
	if strings.HasSuffix(text, "/") {
		p.DirOnly = true
		text = strings.TrimRight(text, "/")
	}
	if strings.Contains(text, "/") {
		p.Anchored = true
	}
	p.Glob = text
	return p, text != ""
}

// Split returns the directory part of the glob and its last segment.
func (p Pattern) Split() (dir, name string) {
	i := strings.LastIndex(p.Glob, "/")
	if i < 0 {
		return "", p.Glob
	}
	return p.Glob[:i], p.Glob[i+1:]
}

// Compile turns a single path segment glob into a regular expression that
// must match a whole entry name.
func Compile(glob string) (*regexp.Regexp, error) {
	expr, err := pattern.Regexp(glob, pattern.Filenames|pattern.EntireString)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(expr)
}

// HasMeta reports whether s contains an unescaped "*", "?" or "[".
func HasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// Match lists the entries directly below origin/dir that the pattern's last
// segment matches. Patterns whose directory part is itself a glob match
// nothing here.
func Match(origin string, p Pattern) ([]Entry, error) {
	dir, name := p.Split()
	if HasMeta(dir) {
		return nil, nil
	}
	re, err := Compile(name)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", p.Raw, err)
	}

	base := filepath.Join(origin, filepath.FromSlash(dir))
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}

	var matches []Entry
	for _, entry := range entries {
		if !re.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(base, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if p.DirOnly && !info.IsDir() {
			continue
		}
		matches = append(matches, Entry{Name: entry.Name(), Path: path, IsDir: info.IsDir()})
	}
	return matches, nil
}
