package buffer

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Encoding is the unit Position.Character is counted in.
type Encoding int

const (
	UTF16 Encoding = iota
	UTF8
	UTF32
)

// ParseEncoding maps an LSP position encoding kind to an Encoding.
func ParseEncoding(kind string) (Encoding, bool) {
	switch kind {
	case "utf-16":
		return UTF16, true
	case "utf-8":
		return UTF8, true
	case "utf-32":
		return UTF32, true
	}
	return UTF16, false
}

func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf-8"
	case UTF32:
		return "utf-32"
	default:
		return "utf-16"
	}
}

// byteOffset returns the byte offset of the column-th unit in s. It reports
// false when column is past the end of s or splits a character.
func (e Encoding) byteOffset(s string, column uint32) (int, bool) {
	if e == UTF8 {
		if int(column) > len(s) {
			return 0, false
		}
		if int(column) < len(s) && !utf8.RuneStart(s[column]) {
			return 0, false
		}
		return int(column), true
	}

	var units uint32
	for i, r := range s {
		if units == column {
			return i, true
		}
		if e == UTF32 {
			units++
		} else {
			units += uint32(utf16.RuneLen(r))
		}
		if units > column {
			return 0, false
		}
	}
	if units == column {
		return len(s), true
	}
	return 0, false
}

// Len returns the length of s in units of e.
func (e Encoding) Len(s string) uint32 {
	switch e {
	case UTF8:
		return uint32(len(s))
	case UTF32:
		return uint32(utf8.RuneCountInString(s))
	}
	var units uint32
	for _, r := range s {
		units += uint32(utf16.RuneLen(r))
	}
	return units
}
