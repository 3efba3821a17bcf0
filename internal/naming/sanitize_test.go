package naming

import (
	"strings"
	"testing"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "report.pdf", "report.pdf"},
		{"keeps last segment", "../../etc/passwd", "passwd"},
		{"backslash segments", `C:\Users\me\notes.txt`, "notes.txt"},
		{"hostile chars", `a<b>c:d"e|f?g*h.txt`, "a-b-c-d-e-f-g-h.txt"},
		{"hostile in extension dropped", "file.t?x*t", "file.txt"},
		{"collapses whitespace", "  my    big   file .md", "my big file.md"},
		{"control chars", "bad\x00na\x1fme\x7f.txt", "badname.txt"},
		{"empty", "", DefaultBase},
		{"only separators", "///", DefaultBase},
		{"hidden file", ".env", "env"},
		{"trailing dot", "name.", "name"},
		{"fullwidth normalized", "ｒｅｐｏｒｔ．ｔｘｔ", "report.txt"},
		{"fullwidth solidus is a separator", "dir／x.txt", "x.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSplit_BoundsLengths(t *testing.T) {
	base, ext := Split(strings.Repeat("b", 200) + "." + strings.Repeat("e", 50))

	assert.Equal(t, MaxBaseLen, utf8.RuneCountInString(base))
	assert.Equal(t, MaxExtLen, utf8.RuneCountInString(ext))
}

func TestSanitize_OutputInvariants(t *testing.T) {
	inputs := []string{
		"a/b/c.txt", `..\..\x`, "\x01\x02", "名前 ファイル.マークダウン",
		strings.Repeat("長", 300) + ".txt", "a\nb\tc.md", "   ", "....",
		"/leading/slash/", "x.." + strings.Repeat("y", 40),
	}

	for _, in := range inputs {
		base, ext := Split(in)
		out := Sanitize(in)

		assert.NotContains(t, out, "/", in)
		assert.NotContains(t, out, `\`, in)
		assert.NotEmpty(t, base, in)
		assert.LessOrEqual(t, utf8.RuneCountInString(base), MaxBaseLen, in)
		assert.LessOrEqual(t, utf8.RuneCountInString(ext), MaxExtLen, in)
		for _, r := range out {
			assert.False(t, unicode.IsControl(r), "control rune in %q", out)
		}
	}
}

func TestCleanBase_Idempotent(t *testing.T) {
	for _, in := range []string{"a:b", "  x  y ", "..hidden", strings.Repeat("z ", 100)} {
		once := CleanBase(in)
		assert.Equal(t, once, CleanBase(once))
	}
}

func TestNoteBase(t *testing.T) {
	assert.Equal(t, "note", NoteBase("note"))
	assert.Equal(t, DefaultNoteBase, NoteBase("  \n\t "))
	assert.Equal(t, "one two three four five six seven eight", NoteBase("one two three four five six seven eight nine ten"))
	assert.Equal(t, "hello world", NoteBase("hello\n\nworld"))

	long := NoteBase(strings.Repeat("abcdefghij", 10))
	assert.Equal(t, 60, utf8.RuneCountInString(long))
}

func TestTimestamp_SortsChronologically(t *testing.T) {
	base := time.Date(2026, 10, 19, 9, 17, 37, 1_000_000, time.UTC)

	assert.Equal(t, "2026-10-19T09-17-37-001Z", Timestamp(base))
	assert.NotContains(t, Timestamp(base), ":")

	times := []time.Time{
		base,
		base.Add(time.Millisecond),
		base.Add(time.Second),
		base.Add(10 * time.Hour),
		base.AddDate(1, 0, 0),
	}
	for i := 1; i < len(times); i++ {
		assert.Less(t, Timestamp(times[i-1]), Timestamp(times[i]))
	}
}

func TestTimestamp_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	local := time.Date(2026, 1, 1, 8, 0, 0, 0, loc)

	assert.Equal(t, "2026-01-01T00-00-00-000Z", Timestamp(local))
}
