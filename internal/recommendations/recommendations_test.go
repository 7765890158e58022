package recommendations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

type fakeWorks struct {
	isbns     map[int][]string
	byISBN    map[string]int
	requested [][]string
}

func (f *fakeWorks) IdentifierValues(workID int, source entities.SourceName) ([]string, error) {
	if source != entities.SourceISBN {
		return nil, nil
	}
	return f.isbns[workID], nil
}

func (f *fakeWorks) WithCoversByISBN(isbns []string) ([]int, error) {
	f.requested = append(f.requested, isbns)
	seen := map[int]bool{}
	var out []int
	for _, v := range isbns {
		if id, ok := f.byISBN[v]; ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeRecommender struct {
	mu      sync.Mutex
	results map[string][]string
	fail    map[string]bool
	calls   int
	limits  []int
}

func (f *fakeRecommender) Recommend(_ context.Context, isbn string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.fail[isbn] {
		return nil, errors.New("upstream error")
	}
	return f.results[isbn], nil
}

func newFixture() (*fakeWorks, *fakeRecommender) {
	works := &fakeWorks{
		isbns: map[int][]string{
			1: {"9780136091813", "9780262033848"},
		},
		byISBN: map[string]int{
			"9780136091813": 1,
			"9780201633610": 2,
			"9780596007126": 3,
		},
	}
	rec := &fakeRecommender{
		results: map[string][]string{
			"9780136091813": {"9780201633610", "9780136091813"},
			"9780262033848": {"0-596-00712-4", "not an isbn"},
		},
		fail: map[string]bool{},
	}
	return works, rec
}

func TestService_UnionsRecommendationsAndExcludesSelf(t *testing.T) {
	works, rec := newFixture()
	s := NewService(works, rec, config.Recommendations{PerIdentifier: 10, Workers: 2})

	ids, err := s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3}, ids)
	assert.Equal(t, 2, rec.calls)
	assert.Equal(t, []int{10, 10}, rec.limits)
	require.Len(t, works.requested, 1)
	assert.ElementsMatch(t, []string{"9780136091813", "9780201633610", "9780596007126"}, works.requested[0])
}

func TestService_FailedLookupContributesNothing(t *testing.T) {
	works, rec := newFixture()
	rec.fail["9780262033848"] = true
	s := NewService(works, rec, config.Recommendations{Workers: 4})

	ids, err := s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)
}

func TestService_NoRecommender(t *testing.T) {
	works, _ := newFixture()
	s := NewService(works, nil, config.Recommendations{})

	ids, err := s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_WorkWithoutISBNs(t *testing.T) {
	works, rec := newFixture()
	s := NewService(works, rec, config.Recommendations{})

	ids, err := s.ForWork(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, rec.calls)
}

func TestService_CachesPerWork(t *testing.T) {
	works, rec := newFixture()
	s := NewService(works, rec, config.Recommendations{CacheTTL: time.Hour})
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.cache.now = func() time.Time { return now }

	_, err := s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	_, err = s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.calls)

	now = now.Add(2 * time.Hour)
	_, err = s.ForWork(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, rec.calls)
}

func TestService_ZeroTTLDisablesCache(t *testing.T) {
	works, rec := newFixture()
	s := NewService(works, rec, config.Recommendations{})

	for i := 0; i < 2; i++ {
		_, err := s.ForWork(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, rec.calls)
}
