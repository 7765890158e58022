// Package recommendations suggests related works by asking the configured
// recommendation provider about each ISBN of a work.
package recommendations

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	isbnpkg "github.com/DarienLibrary/covercache-public/internal/isbn"
	"github.com/DarienLibrary/covercache-public/internal/sources"
)

// WorkLookup resolves a work's ISBNs and maps ISBNs back to works.
type WorkLookup interface {
	IdentifierValues(workID int, source entities.SourceName) ([]string, error)
	WithCoversByISBN(isbns []string) ([]int, error)
}

type Service struct {
	works         WorkLookup
	recommender   sources.Recommender
	perIdentifier int
	workers       int
	cache         *ttlCache
}

// NewService returns a service that recommends nothing when recommender is
// nil.
func NewService(works WorkLookup, recommender sources.Recommender, cfg config.Recommendations) *Service {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Service{
		works:         works,
		recommender:   recommender,
		perIdentifier: cfg.PerIdentifier,
		workers:       workers,
		cache:         newTTLCache(cfg.CacheTTL),
	}
}

// ForWork returns the ids of works with covers that the provider relates to
// any ISBN of workID. The work itself is never included. A failed lookup
// for one ISBN is logged and contributes nothing.
func (s *Service) ForWork(ctx context.Context, workID int) ([]int, error) {
	if ids, ok := s.cache.get(workID); ok {
		return ids, nil
	}
	if s.recommender == nil {
		return []int{}, nil
	}

	isbns, err := s.works.IdentifierValues(workID, entities.SourceISBN)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		related = make(map[string]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, isbn := range isbns {
		isbn := isbn
		g.Go(func() error {
			found, err := s.recommender.Recommend(gctx, isbn, s.perIdentifier)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("isbn", isbn).Msg("Recommendation lookup failed")
				return nil
			}
			mu.Lock()
			for _, raw := range found {
				if v, ok := isbnpkg.Normalize(raw); ok {
					related[v] = true
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(related))
	for v := range related {
		values = append(values, v)
	}
	sort.Strings(values)

	workIDs, err := s.works.WithCoversByISBN(values)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(workIDs))
	for _, id := range workIDs {
		if id != workID {
			out = append(out, id)
		}
	}

	s.cache.set(workID, out)
	return out, nil
}
