package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"notes.txt":      "txt",
		"README.MD":      "md",
		"archive.tar.gz": "gz",
		"Makefile":       "",
		"trailing.":      "",
		".env":           "env",
		"":               "",
	}

	for in, want := range tests {
		assert.Equal(t, want, Extension(in), in)
	}
}

func TestClassify_DefaultAllowList(t *testing.T) {
	c := New(nil, 0)

	assert.Equal(t, Class{Extension: "md", IsText: true}, c.Classify("2026-note.MD"))
	assert.Equal(t, Class{Extension: "go", IsText: true}, c.Classify("main.go"))
	assert.Equal(t, Class{Extension: "png", IsText: false}, c.Classify("photo.png"))
	assert.Equal(t, Class{}, c.Classify("LICENSE"))
}

func TestClassify_ConfiguredAllowList(t *testing.T) {
	c := New([]string{" .TXT ", "", "adoc"}, 10)

	assert.True(t, c.Classify("a.txt").IsText)
	assert.True(t, c.Classify("a.adoc").IsText)
	assert.False(t, c.Classify("a.md").IsText)
}

func TestShouldPreview(t *testing.T) {
	c := New(nil, 16)

	assert.True(t, c.ShouldPreview("a.txt", 16))
	assert.False(t, c.ShouldPreview("a.txt", 17))
	assert.False(t, c.ShouldPreview("a.bin", 1))
	assert.EqualValues(t, 16, c.PreviewLimit())
}
