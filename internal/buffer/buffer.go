// Package buffer holds the text of one open document as a slice of lines and
// applies the position-addressed edits a language client sends.
//
// A Buffer is not safe for concurrent use; callers serialize access.
package buffer

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrMalformedEdit is returned when an edit range is reversed or points
	// outside the current buffer. The buffer is left unchanged.
	ErrMalformedEdit = errors.New("malformed edit")

	// ErrLineOutOfRange is returned when a line index is past the last line.
	ErrLineOutOfRange = errors.New("line out of range")
)

type Position struct {
	Line      uint32
	Character uint32
}

func (p Position) before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

type Range struct {
	Start Position
	End   Position
}

// Edit replaces Range with Text. A nil Range replaces the whole document.
type Edit struct {
	Range *Range
	Text  string
}

type Option func(*Buffer)

// WithEncoding sets how Position.Character is counted. Default is UTF16.
func WithEncoding(enc Encoding) Option {
	return func(b *Buffer) {
		b.encoding = enc
	}
}

type Buffer struct {
	// Every line but the last ends with its terminator. There is always at
	// least one line.
	lines    []string
	encoding Encoding
}

func New(text string, opts ...Option) *Buffer {
	b := &Buffer{
		lines:    splitLines(text),
		encoding: UTF16,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Buffer) LineCount() int {
	return len(b.lines)
}

// Line returns line n including its terminator, if it has one.
func (b *Buffer) Line(n uint32) (string, error) {
	if int(n) >= len(b.lines) {
		return "", fmt.Errorf("%w: line %d, buffer has %d lines", ErrLineOutOfRange, n, len(b.lines))
	}
	return b.lines[n], nil
}

func (b *Buffer) String() string {
	return strings.Join(b.lines, "")
}

// Apply performs a single edit against the current state of the buffer.
func (b *Buffer) Apply(edit Edit) error {
	if edit.Range == nil {
		b.lines = splitLines(edit.Text)
		return nil
	}

	start, end := edit.Range.Start, edit.Range.End
	if end.before(start) {
		return fmt.Errorf("%w: end %d:%d before start %d:%d",
			ErrMalformedEdit, end.Line, end.Character, start.Line, start.Character)
	}
	startByte, err := b.byteInLine(start)
	if err != nil {
		return err
	}
	endByte, err := b.byteInLine(end)
	if err != nil {
		return err
	}

	lo, hi := int(start.Line), int(end.Line)+1
	text := b.lines[lo][:startByte] + edit.Text + b.lines[hi-1][endByte:]

	// A lone "\r" followed by "\n" is one terminator, so the previous line
	// joins the region when the edit makes the two meet.
	if lo > 0 && strings.HasSuffix(b.lines[lo-1], "\r") && strings.HasPrefix(text, "\n") {
		lo--
		text = b.lines[lo] + text
	}

	replaced := splitLines(text)
	if hi < len(b.lines) {
		// text ends with the terminator of its last line; the empty tail
		// belongs to the line that follows.
		replaced = replaced[:len(replaced)-1]
	}
	b.lines = slices.Replace(b.lines, lo, hi, replaced...)
	return nil
}

// byteInLine converts pos to a byte offset within its line.
func (b *Buffer) byteInLine(pos Position) (int, error) {
	if int(pos.Line) >= len(b.lines) {
		return 0, fmt.Errorf("%w: line %d, buffer has %d lines",
			ErrMalformedEdit, pos.Line, len(b.lines))
	}
	content := trimTerminator(b.lines[pos.Line])
	offset, ok := b.encoding.byteOffset(content, pos.Character)
	if !ok {
		return 0, fmt.Errorf("%w: character %d not in line %d",
			ErrMalformedEdit, pos.Character, pos.Line)
	}
	return offset, nil
}

// splitLines splits s after each "\n", "\r\n" or lone "\r". The result always
// has at least one element and its last element has no terminator.
func splitLines(s string) []string {
	lines := make([]string, 0, strings.Count(s, "\n")+1)
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i+1])
			start = i + 1
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

func trimTerminator(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2]
	}
	if strings.HasSuffix(line, "\n") || strings.HasSuffix(line, "\r") {
		return line[:len(line)-1]
	}
	return line
}

// Lines returns a copy of all lines, each with its terminator.
func (b *Buffer) Lines() []string {
	return slices.Clone(b.lines)
}
