package sources

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Recommender is implemented by providers that can suggest related titles.
type Recommender interface {
	Recommend(ctx context.Context, isbn string, limit int) ([]string, error)
}

// Registry resolves providers by name and lists them in precedence order.
type Registry struct {
	byName     map[entities.SourceName]Source
	ordered    []Source
	precedence []entities.SourceName
}

// NewRegistry registers the given providers. Iteration follows precedence;
// names without a provider (isbn, oclc) only take part in ranking.
func NewRegistry(precedence []entities.SourceName, all ...Source) *Registry {
	r := &Registry{
		byName:     make(map[entities.SourceName]Source, len(all)),
		precedence: precedence,
	}
	for _, s := range all {
		r.byName[s.Name()] = s
	}
	seen := make(map[entities.SourceName]bool)
	for _, name := range precedence {
		if seen[name] {
			continue
		}
		seen[name] = true
		if s, ok := r.byName[name]; ok {
			r.ordered = append(r.ordered, s)
		} else {
			log.Debug().Str("source", string(name)).Msg("no image provider for source in precedence list")
		}
	}
	return r
}

// NewDefaultRegistry builds every known provider from configuration.
func NewDefaultRegistry(precedence []entities.SourceName, cfg config.Providers, fetcher *Fetcher) *Registry {
	return NewRegistry(precedence,
		NewStaff(),
		NewAmazon(""),
		NewLink(),
		NewBibliotheca(""),
		NewOverdrive(fetcher, cfg.Overdrive),
		NewSyndetics("", cfg.Syndetics.ClientID),
		NewWorldcat(fetcher, "", "", cfg.Worldcat.DefaultImageHash),
		NewZola(fetcher, ZolaOptions{
			Key:             cfg.Zola.Key,
			Secret:          cfg.Zola.Secret,
			PlaceholderHash: cfg.Zola.DefaultImageHash,
		}),
	)
}

// Ordered returns the providers to try, highest precedence first.
func (r *Registry) Ordered() []Source {
	return r.ordered
}

// Get returns a provider by name, whether or not it is in the precedence.
func (r *Registry) Get(name entities.SourceName) (Source, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Precedence returns the configured source order used for ranking.
func (r *Registry) Precedence() []entities.SourceName {
	return r.precedence
}

// Recommender returns the named provider if it can recommend titles.
func (r *Registry) Recommender(name entities.SourceName) (Recommender, bool) {
	s, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	rec, ok := s.(Recommender)
	return rec, ok
}
