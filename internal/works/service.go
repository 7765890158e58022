// Package works implements the cover operations exposed for a single work:
// retrieval, polling, staff overrides, statistics and recommendations.
package works

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/acquisition"
	"github.com/DarienLibrary/covercache-public/internal/database"
	workstore "github.com/DarienLibrary/covercache-public/internal/database/works"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/sources"
)

var (
	ErrNotFound         = errors.New("work not found")
	ErrNoManifestations = errors.New("work has no manifestations")
	ErrInvalidURL       = errors.New("invalid cover url")
	ErrConflict         = errors.New("cover url already has covers")
	ErrFetchFailed      = errors.New("could not fetch a usable cover")
)

// Store reads works and their covers.
type Store interface {
	Exists(id int) (bool, error)
	Manifestations(workID int) ([]entities.Manifestation, error)
	Covers(workID int) ([]entities.Cover, error)
	HasCover(workID int) (bool, error)
	Stats(precedence []entities.SourceName) (*workstore.Stats, error)
}

// IdentifierStore manages staff identifiers.
type IdentifierStore interface {
	FindOrCreate(source entities.SourceName, value string) (*entities.Identifier, bool, error)
	CountCovers(id uint) (int64, error)
	Covers(id uint) ([]entities.Cover, error)
	MarkChecked(id uint, at time.Time) error
	Attach(identifierID uint, manifestationID int) error
	Delete(id uint) error
}

// Acquirer fetches covers from the providers.
type Acquirer interface {
	TryDownloadCover(ctx context.Context, workID int) (*entities.Cover, error)
	Fetch(ctx context.Context, src sources.Source, ident *entities.Identifier) (*entities.Cover, bool)
}

// Recommender suggests related works.
type Recommender interface {
	ForWork(ctx context.Context, workID int) ([]int, error)
}

// URLBuilder turns a stored cover filename into a public URL.
type URLBuilder interface {
	URL(filename string) string
}

// CoverView is a cover as returned to API clients.
type CoverView struct {
	URL    string              `json:"url"`
	Width  int                 `json:"width"`
	Source entities.SourceName `json:"source"`
}

// RecommendedWork is a related work with its ranked covers.
type RecommendedWork struct {
	ID     int         `json:"id"`
	Covers []CoverView `json:"covers"`
}

type Dependencies struct {
	Works       Store
	Identifiers IdentifierStore
	Acquirer    Acquirer
	Staff       sources.Source
	Recommender Recommender
	URLs        URLBuilder
	Precedence  []entities.SourceName
}

type Service struct {
	works       Store
	identifiers IdentifierStore
	acquirer    Acquirer
	staff       sources.Source
	recommender Recommender
	urls        URLBuilder
	precedence  []entities.SourceName
	ranker      *acquisition.Ranker
	now         func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		works:       deps.Works,
		identifiers: deps.Identifiers,
		acquirer:    deps.Acquirer,
		staff:       deps.Staff,
		recommender: deps.Recommender,
		urls:        deps.URLs,
		precedence:  deps.Precedence,
		ranker:      acquisition.NewRanker(deps.Precedence),
		now:         time.Now,
	}
}

func (s *Service) ensureExists(workID int) error {
	ok, err := s.works.Exists(workID)
	if err != nil {
		return fmt.Errorf("look up work %d: %w", workID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// GetCovers returns every cover reachable from the work, best first.
func (s *Service) GetCovers(workID int) ([]CoverView, error) {
	if err := s.ensureExists(workID); err != nil {
		return nil, err
	}
	return s.rankedCovers(workID)
}

func (s *Service) rankedCovers(workID int) ([]CoverView, error) {
	covers, err := s.works.Covers(workID)
	if err != nil {
		return nil, fmt.Errorf("load covers for work %d: %w", workID, err)
	}
	s.ranker.Sort(covers)
	return s.views(covers), nil
}

func (s *Service) views(covers []entities.Cover) []CoverView {
	out := make([]CoverView, 0, len(covers))
	for _, c := range covers {
		out = append(out, CoverView{URL: s.urls.URL(c.Filename), Width: c.Width, Source: c.Source})
	}
	return out
}

// PollSources searches the providers for a work that has no cover yet.
// Identifiers checked within the retry period are not asked again.
func (s *Service) PollSources(ctx context.Context, workID int) error {
	if err := s.ensureExists(workID); err != nil {
		return err
	}
	has, err := s.works.HasCover(workID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	cover, err := s.acquirer.TryDownloadCover(ctx, workID)
	if err != nil {
		return err
	}
	if cover == nil {
		log.Info().Int("work_id", workID).Msg("No cover found while polling sources")
	}
	return nil
}

// Override fetches a staff supplied image URL and attaches it to the work's
// first manifestation. A URL that already produced covers is rejected. An
// identifier created here is removed again when the fetch fails.
func (s *Service) Override(ctx context.Context, workID int, rawURL string) ([]CoverView, error) {
	if err := s.ensureExists(workID); err != nil {
		return nil, err
	}
	manifestations, err := s.works.Manifestations(workID)
	if err != nil {
		return nil, err
	}
	if len(manifestations) == 0 {
		return nil, ErrNoManifestations
	}
	target := manifestations[0]

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	ident, created, err := s.identifiers.FindOrCreate(entities.SourceStaff, rawURL)
	if err != nil {
		return nil, err
	}
	if !created {
		n, err := s.identifiers.CountCovers(ident.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, ErrConflict
		}
	}

	logger := log.With().Int("work_id", workID).Uint("identifier_id", ident.ID).Logger()
	if err := s.identifiers.MarkChecked(ident.ID, s.now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to mark staff identifier checked")
	}

	if _, ok := s.acquirer.Fetch(ctx, s.staff, ident); !ok {
		if created {
			if err := s.identifiers.Delete(ident.ID); err != nil {
				logger.Error().Err(err).Msg("Failed to roll back staff identifier")
			}
		}
		return nil, ErrFetchFailed
	}

	if err := s.identifiers.Attach(ident.ID, target.ID); err != nil {
		return nil, fmt.Errorf("attach staff identifier: %w", err)
	}
	logger.Info().Int("manifestation_id", target.ID).Msg("Staff cover override stored")

	covers, err := s.identifiers.Covers(ident.ID)
	if err != nil {
		return nil, err
	}
	return s.views(covers), nil
}

// Stats returns aggregate counts over the whole cache.
func (s *Service) Stats() (*workstore.Stats, error) {
	return s.works.Stats(s.precedence)
}

// Recommendations returns related works that have covers.
func (s *Service) Recommendations(ctx context.Context, workID int) ([]RecommendedWork, error) {
	if err := s.ensureExists(workID); err != nil {
		return nil, err
	}
	ids, err := s.recommender.ForWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	out := make([]RecommendedWork, 0, len(ids))
	for _, id := range ids {
		covers, err := s.rankedCovers(id)
		if err != nil {
			return nil, err
		}
		out = append(out, RecommendedWork{ID: id, Covers: covers})
	}
	return out, nil
}

// IsNotFound reports whether err means the work does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, database.ErrNotFound)
}
