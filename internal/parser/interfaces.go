// Package parser defines the domain types and capability interfaces of
// the token metadata parse pipeline. Concrete implementations live in
// resolver, storage, database, and queue; the worker depends only on
// these interfaces so the state machine is testable without a network.
package parser

import (
	"context"

	"github.com/JakeFAU/nft-metadata-parser/internal/model"
)

// URIStore persists crawl progress keyed by the three dedup URIs.
// Lookups return (nil, nil) on a miss.
type URIStore interface {
	FindByTokenURI(ctx context.Context, uri string) (*model.URIRecord, error)
	FindByRawImageURI(ctx context.Context, uri string) (*model.URIRecord, error)
	FindByRawAnimationURI(ctx context.Context, uri string) (*model.URIRecord, error)
	Upsert(ctx context.Context, record model.URIRecord) error
}

// URIResolver rewrites gateway-style references (ipfs:// and friends)
// to fetchable URLs. Callers fall back to the input when it fails.
type URIResolver interface {
	Resolve(uri string) (string, error)
}

// JSONFetcher retrieves and parses a metadata JSON document, bounded
// by maxBytes.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, uri string, maxBytes int64) (JSONResult, error)
}

// MediaOptimizer fetches, decodes, and re-encodes an image or
// animation, bounded by maxBytes and the encoder quality.
type MediaOptimizer interface {
	Optimize(ctx context.Context, uri string, maxBytes int64, quality int) (MediaResult, error)
}

// BlobStore writes processed artifacts to durable storage and returns
// a publicly resolvable URI.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) (string, error)
}
