// Package worker implements the parse pipeline execution loop.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/nft-metadata-parser/internal/metrics"
	"github.com/JakeFAU/nft-metadata-parser/internal/model"
	"github.com/JakeFAU/nft-metadata-parser/internal/parser"
)

// Worker runs the three-stage parse pipeline for queue entries. One
// worker is bound to one store (and therefore one pooled connection)
// for its lifetime and processes items strictly sequentially.
type Worker struct {
	store  parser.URIStore
	uris   parser.URIResolver
	json   parser.JSONFetcher
	media  parser.MediaOptimizer
	blobs  parser.BlobStore
	logger *zap.Logger
}

// New constructs a Worker.
func New(
	store parser.URIStore,
	uris parser.URIResolver,
	json parser.JSONFetcher,
	media parser.MediaOptimizer,
	blobs parser.BlobStore,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		store:  store,
		uris:   uris,
		json:   json,
		media:  media,
		blobs:  blobs,
		logger: logger,
	}
}

// Process runs the pipeline for one item. It always completes: stage
// failures are logged and recorded in retry counters, never propagated,
// so the caller can acknowledge the source message unconditionally.
func (w *Worker) Process(ctx context.Context, item parser.WorkItem) {
	logger := w.logger.With(
		zap.String("reference_id", item.ReferenceID),
		zap.Int64("last_version", item.Version),
	)
	logger.Info("starting parse", zap.String("token_uri", item.TokenURI))

	// Seed from the existing row when there is one so retry counters
	// and CDN references survive re-runs; counters are monotonic for
	// the lifetime of a record. If the lookup itself fails the item is
	// abandoned outright: running later stages on an unseeded record
	// would upsert blank state over whatever the row already holds.
	existing, err := w.store.FindByTokenURI(ctx, item.TokenURI)
	if err != nil {
		logger.Error("token uri lookup failed, skipping item", zap.Error(err))
		return
	}
	rec := model.NewURIRecord(item.TokenURI)
	if existing != nil {
		rec = *existing
	}

	// Stage 1 dedup: proceed on force or when no record exists for the
	// token URI.
	if item.Force || existing == nil {
		w.parseJSON(ctx, logger, item, &rec)
	}

	if w.shouldParseImage(ctx, logger, item, rec) {
		w.parseImage(ctx, logger, item, &rec)
	}

	if animationURI := w.animationSource(ctx, logger, item, rec); animationURI != nil {
		w.parseAnimation(ctx, logger, item, &rec, *animationURI)
	}
}

// shouldParseImage is the stage 2 dedup check, keyed on the raw image
// URI extracted in stage 1. A failed lookup counts as a hit so
// possibly-finished work is not redone.
func (w *Worker) shouldParseImage(ctx context.Context, logger *zap.Logger, item parser.WorkItem, rec model.URIRecord) bool {
	if item.Force {
		return true
	}
	if rec.RawImageURI == nil {
		return true
	}
	existing, err := w.store.FindByRawImageURI(ctx, *rec.RawImageURI)
	if err != nil {
		logger.Error("raw image uri lookup failed", zap.Error(err))
		return false
	}
	return existing == nil
}

// animationSource is the stage 3 dedup decision. Unlike stages 1 and 2
// it suppresses the stage by discarding the in-memory URI on a lookup
// hit, and it proceeds when the lookup itself fails (fail-open).
func (w *Worker) animationSource(ctx context.Context, logger *zap.Logger, item parser.WorkItem, rec model.URIRecord) *string {
	animationURI := rec.RawAnimationURI
	if item.Force || animationURI == nil {
		return animationURI
	}
	existing, err := w.store.FindByRawAnimationURI(ctx, *animationURI)
	if err != nil {
		logger.Error("raw animation uri lookup failed", zap.Error(err))
		return animationURI
	}
	if existing != nil {
		return nil
	}
	return animationURI
}

// parseJSON resolves the token URI, fetches the metadata document,
// re-hosts it, and records the raw media URIs for the later stages.
func (w *Worker) parseJSON(ctx context.Context, logger *zap.Logger, item parser.WorkItem, rec *model.URIRecord) {
	resolved := w.resolveURI(logger, item.TokenURI, item.TokenURI)

	result, err := w.json.FetchJSON(ctx, resolved, item.MaxContentBytes)
	if err != nil {
		logger.Error("json parse failed", zap.String("uri", resolved), zap.Error(err))
		rec.JSONParserRetryCount++
		metrics.ObserveStageFailure("json")
		result = parser.JSONResult{}
	}

	rec.RawImageURI = result.ImageURI
	rec.RawAnimationURI = result.AnimationURI

	if result.Body != nil {
		cdnURI, err := w.blobs.PutObject(ctx, item.JSONKey(), "application/json", result.Body)
		if err != nil {
			logger.Error("json upload failed", zap.Error(err))
		} else {
			rec.CDNJSONURI = &cdnURI
			metrics.ObserveUpload("json")
		}
	}

	w.upsert(ctx, logger, *rec)
}

// parseImage optimizes the image referenced by the metadata (falling
// back to the token URI itself) and re-hosts the result.
func (w *Worker) parseImage(ctx context.Context, logger *zap.Logger, item parser.WorkItem, rec *model.URIRecord) {
	resolved := w.resolveURI(logger, rec.RawImageOrToken(), rec.TokenURI)

	media, err := w.media.Optimize(ctx, resolved, item.MaxContentBytes, item.ImageQuality)
	if err != nil {
		logger.Error("image optimization failed", zap.String("uri", resolved), zap.Error(err))
		rec.ImageOptimizerRetryCount++
		metrics.ObserveStageFailure("image")
		media = parser.MediaResult{}
	}

	if len(media.Data) > 0 {
		cdnURI, err := w.blobs.PutObject(ctx, item.ImageKey(media), media.ContentType(), media.Data)
		if err != nil {
			logger.Error("image upload failed", zap.Error(err))
		} else {
			rec.CDNImageURI = &cdnURI
			metrics.ObserveUpload("image")
		}
	}

	w.upsert(ctx, logger, *rec)
}

// parseAnimation mirrors parseImage for the animation URI. It only
// runs when a raw animation URI survived the dedup decision, so a
// skipped stage performs no upsert.
func (w *Worker) parseAnimation(ctx context.Context, logger *zap.Logger, item parser.WorkItem, rec *model.URIRecord, animationURI string) {
	resolved := w.resolveURI(logger, animationURI, animationURI)

	media, err := w.media.Optimize(ctx, resolved, item.MaxContentBytes, item.ImageQuality)
	if err != nil {
		logger.Error("animation optimization failed", zap.String("uri", resolved), zap.Error(err))
		rec.AnimationOptimizerRetryCount++
		metrics.ObserveStageFailure("animation")
		media = parser.MediaResult{}
	}

	if len(media.Data) > 0 {
		cdnURI, err := w.blobs.PutObject(ctx, item.AnimationKey(media), media.ContentType(), media.Data)
		if err != nil {
			logger.Error("animation upload failed", zap.Error(err))
		} else {
			rec.CDNAnimationURI = &cdnURI
			metrics.ObserveUpload("animation")
		}
	}

	w.upsert(ctx, logger, *rec)
}

// resolveURI rewrites a gateway-style URI, falling back to fallback
// when the resolver cannot handle it.
func (w *Worker) resolveURI(logger *zap.Logger, uri, fallback string) string {
	resolved, err := w.uris.Resolve(uri)
	if err != nil {
		logger.Debug("uri resolution fell back", zap.String("uri", uri), zap.Error(err))
		return fallback
	}
	return resolved
}

// upsert commits the in-memory record. Failures are logged only; the
// retry scheduler recovers lost progress through redelivery.
func (w *Worker) upsert(ctx context.Context, logger *zap.Logger, rec model.URIRecord) {
	if err := w.store.Upsert(ctx, rec); err != nil {
		logger.Error("commit to postgres failed", zap.Error(err))
	}
}
