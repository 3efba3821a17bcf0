// Package naming turns user-supplied names into safe, collision-free paths
// under the uploads root.
package naming

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultBase replaces a base name that is empty after sanitizing.
	DefaultBase = "file"

	// DefaultNoteBase names a note whose message yields no usable words.
	DefaultNoteBase = "note"

	MaxBaseLen = 80
	MaxExtLen  = 20

	noteWords  = 8
	noteMaxLen = 60
)

// hostile characters are unsafe on at least one common filesystem.
const hostile = `/\<>:"|?*`

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// Timestamp renders t in UTC as 2006-01-02T15-04-05-000Z. The fixed width
// keeps lexical order equal to chronological order.
func Timestamp(t time.Time) string {
	return timestampReplacer.Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// Sanitize returns the cleaned "base.ext" form of raw.
func Sanitize(raw string) string {
	base, ext := Split(raw)
	return join(base, ext)
}

// Split normalizes raw and returns its sanitized base and extension. Only
// the last path segment is kept. The extension keeps its original case.
func Split(raw string) (base, ext string) {
	s := norm.NFKC.String(raw)
	s = strings.ReplaceAll(s, `\`, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(stripControl(s))

	if dot := strings.LastIndex(s, "."); dot > 0 {
		base, ext = s[:dot], s[dot+1:]
	} else {
		base = s
	}
	return CleanBase(base), CleanExt(ext)
}

// CleanBase replaces hostile characters with '-', collapses whitespace,
// drops leading dots (hidden names are never listed) and truncates to
// MaxBaseLen runes. It is idempotent.
func CleanBase(base string) string {
	base = norm.NFKC.String(base)
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(hostile, r) {
			return '-'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, base)
	base = strings.Join(strings.Fields(base), " ")
	base = strings.TrimLeft(base, ".")
	base = strings.TrimSpace(truncate(base, MaxBaseLen))
	if base == "" {
		return DefaultBase
	}
	return base
}

// CleanExt drops hostile, control, whitespace and dot characters and
// truncates to MaxExtLen runes.
func CleanExt(ext string) string {
	ext = norm.NFKC.String(ext)
	ext = strings.Map(func(r rune) rune {
		if r == '.' || strings.ContainsRune(hostile, r) || unicode.IsControl(r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, ext)
	return truncate(ext, MaxExtLen)
}

// NoteBase derives a base name from the first words of a note.
func NoteBase(message string) string {
	words := strings.Fields(message)
	if len(words) > noteWords {
		words = words[:noteWords]
	}
	sample := truncate(strings.Join(words, " "), noteMaxLen)
	if strings.TrimSpace(stripControl(sample)) == "" {
		return DefaultNoteBase
	}
	return CleanBase(sample)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func join(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}
