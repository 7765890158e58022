// Package acquisition fetches covers for works from the image providers.
package acquisition

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/covers"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/sources"
)

// WorkIdentifiers lists a work's identifiers in search order.
type WorkIdentifiers interface {
	Identifiers(workID int) ([]entities.Identifier, error)
}

// IdentifierWriter records lookups and their results.
type IdentifierWriter interface {
	MarkChecked(id uint, at time.Time) error
	CreateCover(cover *entities.Cover) error
}

// FileStore persists encoded images.
type FileStore interface {
	Save(filename string, data []byte) (string, error)
	Remove(filename string) error
}

// ImageProcessor turns a fetched body into a stored cover image.
type ImageProcessor interface {
	Process(data []byte) (*covers.Image, error)
}

type attemptKey struct {
	identifier uint
	source     entities.SourceName
}

// Engine searches providers for a work's first obtainable cover. It is safe
// for concurrent use.
type Engine struct {
	works       WorkIdentifiers
	identifiers IdentifierWriter
	registry    *sources.Registry
	fetcher     *sources.Fetcher
	processor   ImageProcessor
	files       FileStore
	retry       time.Duration
	now         func() time.Time

	inflight sync.Map // attemptKey -> struct{}
}

func NewEngine(
	works WorkIdentifiers,
	identifiers IdentifierWriter,
	registry *sources.Registry,
	fetcher *sources.Fetcher,
	processor ImageProcessor,
	files FileStore,
	retry time.Duration,
) *Engine {
	return &Engine{
		works:       works,
		identifiers: identifiers,
		registry:    registry,
		fetcher:     fetcher,
		processor:   processor,
		files:       files,
		retry:       retry,
		now:         time.Now,
	}
}

// TryDownloadCover walks providers in precedence order and, for each, the
// work's identifiers that are due for a check. The first stored cover ends
// the search. A nil cover with a nil error means nothing was found.
func (e *Engine) TryDownloadCover(ctx context.Context, workID int) (*entities.Cover, error) {
	idents, err := e.works.Identifiers(workID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	due := make([]entities.Identifier, 0, len(idents))
	for _, ident := range idents {
		if ident.NeedsCheck(now, e.retry) {
			due = append(due, ident)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}

	marked := make(map[uint]bool, len(due))
	for _, src := range e.registry.Ordered() {
		for i := range due {
			ident := &due[i]
			if !src.Applies(ident) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !marked[ident.ID] {
				marked[ident.ID] = true
				if err := e.identifiers.MarkChecked(ident.ID, now); err != nil {
					log.Warn().Err(err).Uint("identifier_id", ident.ID).Msg("failed to mark identifier checked")
				}
			}
			if cover, ok := e.Fetch(ctx, src, ident); ok {
				log.Info().
					Int("work_id", workID).
					Str("source", string(src.Name())).
					Str("filename", cover.Filename).
					Msg("cover acquired")
				return cover, nil
			}
		}
	}
	return nil, nil
}

// Fetch makes one attempt to get a cover for ident from src, ignoring the
// recheck throttle. Every failure is reported as ok=false.
func (e *Engine) Fetch(ctx context.Context, src sources.Source, ident *entities.Identifier) (*entities.Cover, bool) {
	key := attemptKey{identifier: ident.ID, source: src.Name()}
	if _, busy := e.inflight.LoadOrStore(key, struct{}{}); busy {
		return nil, false
	}
	defer e.inflight.Delete(key)

	logger := log.With().
		Str("source", string(src.Name())).
		Uint("identifier_id", ident.ID).
		Str("value", ident.Value).
		Logger()

	url, ok := src.ImageURL(ctx, ident)
	if !ok {
		return nil, false
	}
	resp, err := e.fetcher.Get(ctx, url)
	if err != nil {
		logger.Debug().Err(err).Msg("image fetch failed")
		return nil, false
	}
	if !src.Validate(resp) {
		logger.Debug().Int("status", resp.StatusCode).Msg("image response rejected")
		return nil, false
	}
	img, err := e.processor.Process(resp.Body)
	if err != nil {
		logger.Debug().Err(err).Msg("image unusable")
		return nil, false
	}

	name, err := e.files.Save(src.Filename(ident, e.now()), img.Data)
	if err != nil {
		logger.Error().Err(err).Msg("failed to write cover file")
		return nil, false
	}
	cover := &entities.Cover{
		IdentifierID: ident.ID,
		Source:       src.Name(),
		Filename:     name,
		Width:        img.Width,
		Height:       img.Height,
	}
	if err := e.identifiers.CreateCover(cover); err != nil {
		logger.Error().Err(err).Msg("failed to store cover")
		_ = e.files.Remove(name)
		return nil, false
	}
	return cover, true
}
