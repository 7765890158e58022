package acquisition

import (
	"sort"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Ranker orders covers of a work: preferred source first, then newest,
// then widest.
type Ranker struct {
	rank map[entities.SourceName]int
}

func NewRanker(precedence []entities.SourceName) *Ranker {
	r := &Ranker{rank: make(map[entities.SourceName]int, len(precedence))}
	for i, name := range precedence {
		if _, ok := r.rank[name]; !ok {
			r.rank[name] = i
		}
	}
	return r
}

// sourceRank puts sources missing from the precedence list last.
func (r *Ranker) sourceRank(name entities.SourceName) int {
	if i, ok := r.rank[name]; ok {
		return i
	}
	return len(r.rank)
}

// Less reports whether a ranks before b.
func (r *Ranker) Less(a, b *entities.Cover) bool {
	ra, rb := r.sourceRank(a.Source), r.sourceRank(b.Source)
	if ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Width > b.Width
}

// Sort ranks covers in place. Covers equal on every key keep their order.
func (r *Ranker) Sort(covers []entities.Cover) {
	sort.SliceStable(covers, func(i, j int) bool {
		return r.Less(&covers[i], &covers[j])
	})
}

// Best returns the highest ranked cover.
func (r *Ranker) Best(covers []entities.Cover) (*entities.Cover, bool) {
	if len(covers) == 0 {
		return nil, false
	}
	best := &covers[0]
	for i := 1; i < len(covers); i++ {
		if r.Less(&covers[i], best) {
			best = &covers[i]
		}
	}
	return best, true
}
