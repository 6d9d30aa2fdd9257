// package tasks implements playlist transfer operations between streaming
// providers.
//
// The core abstraction is TransferEngine, which drives a Job from created
// through fetching, resolving, and writing to a terminal status. Operations
// emit progress updates via channels for non-blocking status reporting to
// the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/tracklift/tracklift/internal/match"
	"github.com/tracklift/tracklift/internal/models"
	"github.com/tracklift/tracklift/internal/repositories"
	"github.com/tracklift/tracklift/internal/services"
	"github.com/tracklift/tracklift/internal/shared"
)

// TransferRequest describes one playlist transfer.
type TransferRequest struct {
	SourcePlaylistID string // source playlist, or models.LikedSongsID
	PlaylistName     string // name for a newly created target playlist
	TargetPlaylistID string // append to an existing playlist instead of creating one
	SkipDuplicates   bool   // skip tracks already present in the target playlist
}

// MatchCache is consulted before searching and updated after every
// successful resolution. A nil cache changes nothing about outcomes.
type MatchCache interface {
	Lookup(sourceProvider, sourceID, targetProvider string) (*repositories.CachedMatch, error)
	Record(source, target models.TrackRef, score float64) error
}

// Options tunes a TransferEngine. Zero values fall back to defaults.
type Options struct {
	Workers int           // concurrent resolvers (default 5, capped at 10)
	Backoff shared.Backoff
	Cache   MatchCache
	Logger  *log.Logger
}

// TransferEngine copies playlists from a source provider to a target
// provider, resolving each track against the target catalog.
type TransferEngine struct {
	source   services.Provider
	target   services.Provider
	resolver *match.Resolver
	cache    MatchCache
	workers  int
	backoff  shared.Backoff
	logger   *log.Logger
}

// NewTransferEngine creates an engine for one source → target direction.
func NewTransferEngine(source, target services.Provider, resolver *match.Resolver, opts Options) *TransferEngine {
	workers := opts.Workers
	if workers <= 0 {
		workers = 5
	}
	if workers > 10 {
		workers = 10
	}

	backoff := opts.Backoff
	if backoff.MaxAttempts == 0 {
		backoff = shared.DefaultBackoff()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &TransferEngine{
		source:   source,
		target:   target,
		resolver: resolver,
		cache:    opts.Cache,
		workers:  workers,
		backoff:  backoff,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls the transfer.
func (e *TransferEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes the job to its terminal status and returns the final report.
// The returned error is the failure cause when the job ends Failed. A job
// that fails before the write stage begins (source fetch, target playlist
// creation) reports an empty item list; cancellation mid-resolve keeps the
// recorded results.
func (e *TransferEngine) Run(ctx context.Context, job *Job, progress chan<- ProgressUpdate) (*models.JobReport, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: provider not initialized", shared.ErrProviderUnavailable)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: nil job", shared.ErrInvalidInput)
	}
	req := job.Request()
	if req.SourcePlaylistID == "" {
		return nil, fmt.Errorf("%w: source playlist ID required", shared.ErrInvalidInput)
	}

	tracks, err := e.fetchSource(ctx, job, progress)
	if err != nil {
		job.finish(models.StatusFailed)
		report := job.Snapshot()
		return &report, err
	}

	items := e.resolveAll(ctx, job, tracks, progress)
	if ctx.Err() != nil {
		job.finish(models.StatusFailed)
		report := job.Snapshot()
		return &report, ctx.Err()
	}

	if err := e.write(ctx, job, items, progress); err != nil {
		// The write never started, so nothing was partially transferred;
		// the failed report carries no per-track results.
		job.clearItems()
		job.finish(models.StatusFailed)
		report := job.Snapshot()
		return &report, err
	}

	status := models.StatusCompleted
	for _, item := range items {
		if item.Outcome != models.OutcomeMatched {
			status = models.StatusCompletedWithErrors
			break
		}
	}
	job.finish(status)

	report := job.Snapshot()
	e.sendProgress(progress, finishedUpdate(&report))
	e.logger.Info("transfer finished",
		"job", report.ID,
		"status", report.Status,
		"matched", report.Counts.Matched,
		"errors", report.Counts.Errors,
	)
	return &report, nil
}

// fetchSource drains the source pager into an ordered track list. Any fetch
// failure fails the whole job; there is nothing sensible to transfer from a
// partial source.
func (e *TransferEngine) fetchSource(ctx context.Context, job *Job, progress chan<- ProgressUpdate) ([]models.TrackRef, error) {
	req := job.Request()
	job.advance(models.StatusFetchingSource)

	var playlist *models.PlaylistRef
	err := e.backoff.Retry(ctx, func() error {
		var err error
		playlist, err = e.source.Playlist(ctx, req.SourcePlaylistID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source playlist: %w", err)
	}

	e.sendProgress(progress, fetchingSourceUpdate(playlist.Name))

	pager := e.source.PlaylistTracks(req.SourcePlaylistID)
	var tracks []models.TrackRef
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var page []models.TrackRef
		err := e.backoff.Retry(ctx, func() error {
			var err error
			page, err = pager.Next(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source tracks: %w", err)
		}
		if page == nil {
			break
		}

		tracks = append(tracks, page...)
		e.sendProgress(progress, fetchedPageUpdate(len(tracks)))
	}

	playlist.Tracks = tracks
	job.setSource(*playlist)
	job.beginItems(tracks)
	e.logger.Debug("fetched source playlist", "playlist", playlist.Name, "tracks", len(tracks))
	return tracks, nil
}

type indexedTrack struct {
	index int
	track models.TrackRef
}

type indexedResult struct {
	index  int
	result models.TransferItemResult
}

// resolveAll fans the source tracks out over a fixed worker pool and
// reassembles results by source index so report order matches playlist
// order. One result is produced per track no matter what happens to it.
func (e *TransferEngine) resolveAll(ctx context.Context, job *Job, tracks []models.TrackRef, progress chan<- ProgressUpdate) []models.TransferItemResult {
	job.advance(models.StatusResolving)

	items := make([]models.TransferItemResult, len(tracks))
	for i, track := range tracks {
		items[i] = models.TransferItemResult{
			Source:  track,
			Outcome: models.OutcomeProviderError,
			Err:     "not resolved",
		}
	}

	jobs := make(chan indexedTrack)
	results := make(chan indexedResult)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go e.resolveWorker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, track := range tracks {
			select {
			case <-ctx.Done():
				return
			case jobs <- indexedTrack{index: i, track: track}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		items[res.index] = res.result
		job.recordItem(res.index, res.result)
		done++
		e.sendProgress(progress, resolvingUpdate(done, len(tracks), res.result))
	}

	// On cancellation, tracks never dispatched keep their placeholder
	// outcome; record them so the report still has one result per track.
	if err := ctx.Err(); err != nil {
		for i := range items {
			if items[i].Err == "not resolved" {
				items[i].Err = err.Error()
			}
			job.recordItem(i, items[i])
		}
	}

	return items
}

// resolveWorker resolves tracks from the jobs channel until it closes.
func (e *TransferEngine) resolveWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan indexedTrack, results chan<- indexedResult) {
	defer wg.Done()

	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- indexedResult{index: j.index, result: e.resolveOne(ctx, j.track)}
	}
}

// resolveOne resolves a single source track, consulting the cache first.
// Provider failures degrade this item only.
func (e *TransferEngine) resolveOne(ctx context.Context, track models.TrackRef) models.TransferItemResult {
	if e.cache != nil {
		hit, err := e.cache.Lookup(track.Provider, track.ID, e.target.Name())
		if err != nil {
			e.logger.Warn("match cache lookup failed", "track", track.ID, "error", err)
		} else if hit != nil {
			target := hit.Target
			return models.TransferItemResult{
				Source:  track,
				Outcome: models.OutcomeMatched,
				Matched: &target,
				Score:   hit.Score,
			}
		}
	}

	var (
		best    *models.MatchCandidate
		outcome models.Outcome
	)
	err := e.backoff.Retry(ctx, func() error {
		var err error
		best, outcome, err = e.resolver.Resolve(ctx, track)
		return err
	})
	if err != nil {
		return models.TransferItemResult{
			Source:  track,
			Outcome: models.OutcomeProviderError,
			Err:     err.Error(),
		}
	}

	item := models.TransferItemResult{Source: track, Outcome: outcome}
	if best != nil {
		matched := best.Track
		item.Matched = &matched
		item.Score = best.Score
	}

	if outcome == models.OutcomeMatched && e.cache != nil {
		if err := e.cache.Record(track, best.Track, best.Score); err != nil {
			e.logger.Warn("match cache record failed", "track", track.ID, "error", err)
		}
	}

	return item
}

// write creates or reuses the target playlist and appends the resolved
// tracks in source order, one batch at a time. A failed batch degrades its
// items and the write continues with the next batch.
func (e *TransferEngine) write(ctx context.Context, job *Job, items []models.TransferItemResult, progress chan<- ProgressUpdate) error {
	req := job.Request()
	job.advance(models.StatusWriting)

	writable := make([]int, 0, len(items))
	for i, item := range items {
		if item.Outcome == models.OutcomeMatched || item.Outcome == models.OutcomeAmbiguous {
			writable = append(writable, i)
		}
	}

	var target *models.PlaylistRef
	if req.TargetPlaylistID != "" {
		err := e.backoff.Retry(ctx, func() error {
			var err error
			target, err = e.target.Playlist(ctx, req.TargetPlaylistID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to fetch target playlist: %w", err)
		}

		if req.SkipDuplicates {
			writable, err = e.filterDuplicates(ctx, items, writable, req.TargetPlaylistID)
			if err != nil {
				return fmt.Errorf("failed to read target playlist for duplicate skipping: %w", err)
			}
		}
	} else {
		if len(writable) == 0 {
			// Nothing matched; creating an empty playlist helps nobody.
			return nil
		}

		name := req.PlaylistName
		if name == "" {
			name = job.Snapshot().Source.Name
		}
		description := fmt.Sprintf("Transferred from %s", e.source.Name())

		err := e.backoff.Retry(ctx, func() error {
			var err error
			target, err = e.target.CreatePlaylist(ctx, name, description)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create target playlist: %w", err)
		}
		e.sendProgress(progress, createdPlaylistUpdate(target))
	}
	job.setTarget(target)

	batchSize := e.target.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}
	totalBatches := (len(writable) + batchSize - 1) / batchSize

	for b := 0; b*batchSize < len(writable); b++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		chunk := writable[b*batchSize : min((b+1)*batchSize, len(writable))]
		ids := make([]string, len(chunk))
		for i, idx := range chunk {
			ids[i] = items[idx].Matched.ID
		}

		err := e.backoff.Retry(ctx, func() error {
			return e.target.AddTracks(ctx, target.ID, ids)
		})
		if err != nil {
			// Degrade this batch only; later batches still get their shot.
			for _, idx := range chunk {
				items[idx].Outcome = models.OutcomeProviderError
				items[idx].Matched = nil
				items[idx].Err = fmt.Sprintf("failed to add to target playlist: %v", err)
				job.recordItem(idx, items[idx])
			}
			e.sendProgress(progress, batchFailedUpdate(b+1, totalBatches, err))
			e.logger.Warn("batch write failed", "batch", b+1, "size", len(chunk), "error", err)
			continue
		}

		e.sendProgress(progress, wroteBatchUpdate(b+1, totalBatches, len(chunk)))
	}

	return nil
}

// filterDuplicates removes writable items whose match is already present in
// the target playlist, comparing by ISRC first and normalized title|artist
// key second.
func (e *TransferEngine) filterDuplicates(ctx context.Context, items []models.TransferItemResult, writable []int, targetPlaylistID string) ([]int, error) {
	existing, err := services.Tracks(ctx, e.target.PlaylistTracks(targetPlaylistID))
	if err != nil {
		return nil, err
	}

	byISRC := make(map[string]struct{})
	byKey := make(map[string]struct{})
	for _, track := range existing {
		if track.ISRC != "" {
			byISRC[track.ISRC] = struct{}{}
		}
		byKey[shared.NormalizeTrackKey(track.Title, track.PrimaryArtist())] = struct{}{}
	}

	kept := writable[:0]
	skipped := 0
	for _, idx := range writable {
		matched := items[idx].Matched
		if matched.ISRC != "" {
			if _, found := byISRC[matched.ISRC]; found {
				skipped++
				continue
			}
		}
		if _, found := byKey[shared.NormalizeTrackKey(matched.Title, matched.PrimaryArtist())]; found {
			skipped++
			continue
		}
		kept = append(kept, idx)
	}

	if skipped > 0 {
		e.logger.Info("skipped duplicate tracks already in target playlist", "skipped", skipped)
	}
	return kept, nil
}
