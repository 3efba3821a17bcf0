// Package classify decides whether a stored entry is text and whether its
// content should be inlined into a listing. The verdict depends on the file
// extension alone; it is a display hint and never a security decision.
package classify

import "strings"

// DefaultPreviewLimit is the largest entry whose text is inlined.
const DefaultPreviewLimit = 64 * 1024

// DefaultTextExtensions is the allow-list used when none is configured.
var DefaultTextExtensions = []string{
	"txt", "md", "markdown", "json", "js", "ts", "tsx", "jsx",
	"css", "scss", "sass", "less", "html", "htm", "xml",
	"yaml", "yml", "toml", "ini", "conf", "cfg", "log", "csv", "tsv",
	"py", "java", "kt", "rb", "go", "rs", "php",
	"c", "cc", "cpp", "cs", "sql", "env",
}

// Class is the classification of a single name.
type Class struct {
	Extension string
	IsText    bool
}

// Classifier maps names to a Class using a fixed allow-list.
type Classifier struct {
	text         map[string]struct{}
	previewLimit int64
}

// New builds a Classifier. An empty extension list falls back to
// DefaultTextExtensions and a non-positive limit to DefaultPreviewLimit.
func New(extensions []string, previewLimit int64) *Classifier {
	if len(extensions) == 0 {
		extensions = DefaultTextExtensions
	}
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}

	text := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			text[ext] = struct{}{}
		}
	}
	return &Classifier{text: text, previewLimit: previewLimit}
}

// Extension returns the lower-cased text after the last dot of name, or ""
// when there is no dot or the dot is the final character.
func Extension(name string) string {
	dot := strings.LastIndex(name, ".")
	if dot == -1 || dot == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[dot+1:])
}

// Classify returns the extension of name and whether it is a known text type.
func (c *Classifier) Classify(name string) Class {
	ext := Extension(name)
	if ext == "" {
		return Class{}
	}
	_, ok := c.text[ext]
	return Class{Extension: ext, IsText: ok}
}

// ShouldPreview reports whether the content of an entry of the given name
// and size should be fetched for inline display.
func (c *Classifier) ShouldPreview(name string, size int64) bool {
	return size <= c.previewLimit && c.Classify(name).IsText
}

// PreviewLimit returns the inline preview ceiling in bytes.
func (c *Classifier) PreviewLimit() int64 {
	return c.previewLimit
}
