// Package store is the virtual file store: one contract over heterogeneous
// storage backends, with collision-safe naming, cached listings and
// consistent text/binary classification.
package store

import (
	"sort"
	"time"

	"github.com/notedrop/service/internal/classify"
)

// Entry is one stored file or note as returned by a listing.
type Entry struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Size        int64      `json:"size"`
	DownloadURL string     `json:"downloadUrl"`
	PreviewURL  string     `json:"previewUrl,omitempty"`
	HTMLURL     string     `json:"htmlUrl,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt"`
	Extension   string     `json:"extension"`
	IsText      bool       `json:"isText"`
	TextContent *string    `json:"textContent,omitempty"`
}

// NewEntry fills the derived fields of an entry from its name.
func NewEntry(c *classify.Classifier, name, path string, size int64, downloadURL string) Entry {
	class := c.Classify(name)
	return Entry{
		Name:        name,
		Path:        path,
		Size:        size,
		DownloadURL: downloadURL,
		Extension:   class.Extension,
		IsText:      class.IsText,
	}
}

// Hidden reports whether a name should be left out of listings.
func Hidden(name string) bool {
	return name == "" || name[0] == '.'
}

// SortEntries orders entries newest first. Names start with a sortable
// timestamp, so name order is used unless modification times are known;
// entries with an unknown time go last.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.UpdatedAt != nil && b.UpdatedAt != nil && !a.UpdatedAt.Equal(*b.UpdatedAt):
			return a.UpdatedAt.After(*b.UpdatedAt)
		case a.UpdatedAt != nil && b.UpdatedAt == nil:
			return true
		case a.UpdatedAt == nil && b.UpdatedAt != nil:
			return false
		default:
			return a.Name > b.Name
		}
	})
}

// Object is a resolved write: the final path plus its payload.
type Object struct {
	Path        string
	Content     []byte
	ContentType string
}

// Result describes a completed write.
type Result struct {
	Path        string `json:"path"`
	DownloadURL string `json:"downloadUrl"`
}

// File is an uploaded file as received from the caller.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     []byte
}

// UploadRequest is a single submission. At least one of Message and File
// must be set; both produce two independent writes.
type UploadRequest struct {
	Message    string
	File       *File
	CustomName string
	// TextExt is "md" or "txt" and applies to the note only.
	TextExt string
}

// ListOptions tunes a listing.
type ListOptions struct {
	// IncludeContent inlines the text of small text entries.
	IncludeContent bool
	// ForceRefresh bypasses the cache for this read.
	ForceRefresh bool
}

// DeleteAllResult reports a batch delete.
type DeleteAllResult struct {
	DeletedCount int `json:"deletedCount"`
}
