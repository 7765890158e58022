// Package maintenance runs the periodic catalog sync and cover sweep.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/DarienLibrary/covercache-public/internal/catalog"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const (
	StageReconcileRenames    = "reconcile_renames"
	StagePruneManifestations = "prune_manifestations"
	StageRefreshIdentifiers  = "refresh_identifiers"
	StageRefreshWorks        = "refresh_works"
	StageAcquireCovers       = "acquire_covers"

	progressEvery = 50
)

// ErrAlreadyRunning is returned when a run is started while another is in
// progress.
var ErrAlreadyRunning = errors.New("maintenance already running")

// ProgressReporter records run progress for the status endpoint.
type ProgressReporter interface {
	StartRun() error
	StartStage(stage string, totalItems int) error
	UpdateProgress(processed, succeeded, failed, skipped int, current string) error
	CompleteRun(succeeded bool, errorMsg string) error
	IsRunning() (bool, error)
}

// ManifestationStore applies catalog changes to local manifestations.
type ManifestationStore interface {
	IDs() ([]int, error)
	Rename(oldID, newID int) (bool, error)
	Prune(current []int) ([]int, error)
	Ensure(id, precedence int) (*entities.Manifestation, error)
	ReplaceIdentifiers(id int, found []entities.Identifier, checkedAt time.Time) error
	AssignWorks(assignments map[int]int) (int, error)
}

// CoverlessWorks lists works that still need a cover.
type CoverlessWorks interface {
	CoverlessIDs() ([]int, error)
}

// CoverAcquirer searches the providers for one work.
type CoverAcquirer interface {
	TryDownloadCover(ctx context.Context, workID int) (*entities.Cover, error)
}

// Report summarises a run.
type Report struct {
	Renamed         int           `json:"renamed"`
	RenameConflicts int           `json:"rename_conflicts"`
	Pruned          int           `json:"pruned"`
	Refreshed       int           `json:"refreshed"`
	Unchanged       int           `json:"unchanged"`
	RefreshFailed   int           `json:"refresh_failed"`
	WorksAssigned   int           `json:"works_assigned"`
	WorksSearched   int           `json:"works_searched"`
	CoversAcquired  int           `json:"covers_acquired"`
	AcquireFailed   int           `json:"acquire_failed"`
	Duration        time.Duration `json:"duration"`
}

type Orchestrator struct {
	catalog        catalog.Source
	extractor      *catalog.Extractor
	manifestations ManifestationStore
	works          CoverlessWorks
	acquirer       CoverAcquirer
	progress       ProgressReporter
	workers        int

	now     func() time.Time
	shuffle func([]int)
	running atomic.Bool
}

func NewOrchestrator(
	source catalog.Source,
	extractor *catalog.Extractor,
	manifestations ManifestationStore,
	works CoverlessWorks,
	acquirer CoverAcquirer,
	progress ProgressReporter,
	workers int,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		catalog:        source,
		extractor:      extractor,
		manifestations: manifestations,
		works:          works,
		acquirer:       acquirer,
		progress:       progress,
		workers:        workers,
		now:            time.Now,
		shuffle: func(ids []int) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}
}

// Run executes every stage in order. Reconcile and prune failures abort
// the run; failures for a single manifestation or work are logged and
// counted.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	if running, err := o.progress.IsRunning(); err != nil {
		return nil, fmt.Errorf("check running maintenance: %w", err)
	} else if running {
		return nil, ErrAlreadyRunning
	}
	if err := o.progress.StartRun(); err != nil {
		return nil, fmt.Errorf("start maintenance run: %w", err)
	}

	start := o.now()
	report := &Report{}
	err := o.run(ctx, report)
	report.Duration = o.now().Sub(start)

	if err != nil {
		log.Error().Err(err).Msg("Maintenance run failed")
		_ = o.progress.CompleteRun(false, err.Error())
		return report, err
	}
	log.Info().
		Int("renamed", report.Renamed).
		Int("pruned", report.Pruned).
		Int("refreshed", report.Refreshed).
		Int("works_assigned", report.WorksAssigned).
		Int("covers_acquired", report.CoversAcquired).
		Dur("duration", report.Duration).
		Msg("Maintenance run completed")
	_ = o.progress.CompleteRun(true, "")
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, report *Report) error {
	if err := o.reconcileRenames(ctx, report); err != nil {
		return fmt.Errorf("%s: %w", StageReconcileRenames, err)
	}

	records, err := o.catalog.ListManifestations(ctx)
	if err != nil {
		return fmt.Errorf("list catalog manifestations: %w", err)
	}
	if err := o.pruneManifestations(records, report); err != nil {
		return fmt.Errorf("%s: %w", StagePruneManifestations, err)
	}
	if err := o.refreshIdentifiers(ctx, records, report); err != nil {
		return fmt.Errorf("%s: %w", StageRefreshIdentifiers, err)
	}
	if err := o.refreshWorks(ctx, report); err != nil {
		return fmt.Errorf("%s: %w", StageRefreshWorks, err)
	}
	if err := o.acquireCovers(ctx, report); err != nil {
		return fmt.Errorf("%s: %w", StageAcquireCovers, err)
	}
	return nil
}

func (o *Orchestrator) reconcileRenames(ctx context.Context, report *Report) error {
	events, err := o.catalog.ListRenameEvents(ctx)
	if err != nil {
		return err
	}
	mapping, conflicts := catalog.ResolveRenames(events)
	report.RenameConflicts = len(conflicts)
	for _, c := range conflicts {
		log.Warn().
			Int("old_id", c.OldID).
			Ints("candidates", c.Candidates).
			Int("chosen", c.Chosen).
			Msg("Conflicting rename events")
	}

	local, err := o.manifestations.IDs()
	if err != nil {
		return err
	}
	var olds []int
	for _, id := range local {
		if _, ok := mapping[id]; ok {
			olds = append(olds, id)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(olds)))

	o.startStage(StageReconcileRenames, len(olds))
	for i, oldID := range olds {
		if err := ctx.Err(); err != nil {
			return err
		}
		renamed, err := o.manifestations.Rename(oldID, mapping[oldID])
		if err != nil {
			return fmt.Errorf("rename %d to %d: %w", oldID, mapping[oldID], err)
		}
		if renamed {
			report.Renamed++
			log.Debug().Int("old_id", oldID).Int("new_id", mapping[oldID]).Msg("Manifestation renamed")
		}
		o.updateProgress(i+1, report.Renamed, 0, i+1-report.Renamed, "", false)
	}
	return nil
}

func (o *Orchestrator) pruneManifestations(records []catalog.ManifestationRecord, report *Report) error {
	o.startStage(StagePruneManifestations, len(records))

	current := make([]int, 0, len(records))
	for _, rec := range records {
		current = append(current, rec.ID)
	}
	if len(current) == 0 {
		local, err := o.manifestations.IDs()
		if err != nil {
			return err
		}
		if len(local) > 0 {
			// an empty catalog answer is far more likely an outage than a purge
			log.Warn().Int("local", len(local)).Msg("Catalog returned no manifestations, skipping prune")
			return nil
		}
	}

	dead, err := o.manifestations.Prune(current)
	if err != nil {
		return err
	}
	report.Pruned = len(dead)
	o.updateProgress(len(records), len(records)-len(dead), 0, 0, "", true)
	return nil
}

func (o *Orchestrator) refreshIdentifiers(ctx context.Context, records []catalog.ManifestationRecord, report *Report) error {
	o.startStage(StageRefreshIdentifiers, len(records))

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := o.refreshManifestation(ctx, rec)
		switch {
		case err != nil:
			report.RefreshFailed++
			log.Warn().Err(err).Int("manifestation_id", rec.ID).Msg("Identifier refresh failed")
		case changed:
			report.Refreshed++
		default:
			report.Unchanged++
		}
		o.updateProgress(i+1, report.Refreshed, report.RefreshFailed, report.Unchanged,
			fmt.Sprintf("manifestation %d", rec.ID), i+1 == len(records))
	}
	return nil
}

// refreshManifestation re-derives identifiers when the catalog record
// changed since the last check.
func (o *Orchestrator) refreshManifestation(ctx context.Context, rec catalog.ManifestationRecord) (bool, error) {
	m, err := o.manifestations.Ensure(rec.ID, rec.Precedence)
	if err != nil {
		return false, err
	}
	if m.DateLastChecked != nil && !m.DateLastChecked.Before(rec.LastModified) {
		return false, nil
	}

	tags, err := o.catalog.ListIdentifierTags(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	extracted := o.extractor.Extract(tags)
	found := make([]entities.Identifier, 0, len(extracted))
	for _, e := range extracted {
		found = append(found, entities.Identifier{Source: e.Source, Value: e.Value})
	}

	// never stamp earlier than the record's own modification time, so an
	// unchanged record is not refreshed again
	checkedAt := o.now()
	if checkedAt.Before(rec.LastModified) {
		checkedAt = rec.LastModified
	}
	if err := o.manifestations.ReplaceIdentifiers(rec.ID, found, checkedAt); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) refreshWorks(ctx context.Context, report *Report) error {
	rows, err := o.catalog.ListWorkTags(ctx)
	if err != nil {
		return err
	}
	assignments := o.extractor.WorkAssignments(rows)
	o.startStage(StageRefreshWorks, len(assignments))

	changed, err := o.manifestations.AssignWorks(assignments)
	if err != nil {
		return err
	}
	report.WorksAssigned = changed
	o.updateProgress(len(assignments), changed, 0, len(assignments)-changed, "", true)
	return nil
}

func (o *Orchestrator) acquireCovers(ctx context.Context, report *Report) error {
	ids, err := o.works.CoverlessIDs()
	if err != nil {
		return err
	}
	o.shuffle(ids)
	o.startStage(StageAcquireCovers, len(ids))

	var (
		mu                                  sync.Mutex
		processed, acquired, failed, missed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, workID := range ids {
		if gctx.Err() != nil {
			break
		}
		workID := workID
		g.Go(func() error {
			cover, err := o.acquirer.TryDownloadCover(gctx, workID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			processed++
			switch {
			case err != nil:
				failed++
				log.Warn().Err(err).Int("work_id", workID).Msg("Cover acquisition failed")
			case cover != nil:
				acquired++
			default:
				missed++
			}
			o.updateProgress(processed, acquired, failed, missed, fmt.Sprintf("work %d", workID), processed == len(ids))
			return nil
		})
	}
	err = g.Wait()

	report.WorksSearched = processed
	report.CoversAcquired = acquired
	report.AcquireFailed = failed
	if err == nil {
		err = ctx.Err()
	}
	return err
}

func (o *Orchestrator) startStage(stage string, total int) {
	log.Info().Str("stage", stage).Int("total", total).Msg("Maintenance stage started")
	if err := o.progress.StartStage(stage, total); err != nil {
		log.Warn().Err(err).Str("stage", stage).Msg("Failed to record stage")
	}
}

// updateProgress writes counters every progressEvery items and on the
// final item.
func (o *Orchestrator) updateProgress(processed, succeeded, failed, skipped int, current string, final bool) {
	if !final && processed%progressEvery != 0 {
		return
	}
	if err := o.progress.UpdateProgress(processed, succeeded, failed, skipped, current); err != nil {
		log.Warn().Err(err).Msg("Failed to update progress")
	}
}
