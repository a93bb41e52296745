package parser

import (
	"fmt"
	"time"
)

// WorkItem is one decoded queue entry, owned exclusively by the worker
// that processes it.
type WorkItem struct {
	// ReferenceID is the stable identifier of the token this message
	// concerns; storage object keys are derived from it.
	ReferenceID string
	// TokenURI is the raw, unresolved metadata reference.
	TokenURI string
	// Version and Timestamp are provenance markers from the upstream
	// producer, carried for log correlation only.
	Version   int64
	Timestamp time.Time
	// Force bypasses every dedup check and re-executes all stages.
	Force bool

	// Per-run limits stamped on by the ingestion loop.
	MaxContentBytes int64
	ImageQuality    int
}

// JSONResult is the outcome of fetching and parsing a metadata JSON
// document. Body is nil when no JSON was obtained.
type JSONResult struct {
	ImageURI     *string
	AnimationURI *string
	Body         []byte
}

// MediaResult holds optimized media bytes and their detected format
// ("jpeg", "png", "gif"). Empty Data means the optimizer produced
// nothing usable.
type MediaResult struct {
	Data   []byte
	Format string
}

// ContentType maps the detected format to a MIME type.
func (m MediaResult) ContentType() string {
	switch m.Format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the object-key extension for the detected format.
func (m MediaResult) Ext() string {
	switch m.Format {
	case "jpeg":
		return "jpg"
	case "png", "gif":
		return m.Format
	default:
		return "bin"
	}
}

// JSONKey derives the storage object key for the metadata document.
func (w WorkItem) JSONKey() string {
	return fmt.Sprintf("json_%s.json", w.ReferenceID)
}

// ImageKey derives the storage object key for the optimized image.
func (w WorkItem) ImageKey(m MediaResult) string {
	return fmt.Sprintf("image_%s.%s", w.ReferenceID, m.Ext())
}

// AnimationKey derives the storage object key for the optimized animation.
func (w WorkItem) AnimationKey(m MediaResult) string {
	return fmt.Sprintf("animation_%s.%s", w.ReferenceID, m.Ext())
}
