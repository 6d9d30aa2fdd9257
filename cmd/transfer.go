package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tracklift/tracklift/internal/formatter"
	"github.com/tracklift/tracklift/internal/match"
	"github.com/tracklift/tracklift/internal/repositories"
	"github.com/tracklift/tracklift/internal/shared"
	"github.com/tracklift/tracklift/internal/tasks"
)

// TransferRun transfers one playlist from the source provider to the
// target provider and prints the job report.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	sourceName := cmd.String("source")
	targetName := cmd.String("target")
	playlistID := cmd.String("playlist")

	if sourceName == targetName {
		return fmt.Errorf("%w: source and target provider must differ", shared.ErrInvalidInput)
	}

	source, err := r.providerFor(ctx, sourceName, r.config.Transfer.SourceRate)
	if err != nil {
		return err
	}
	target, err := r.providerFor(ctx, targetName, r.config.Transfer.TargetRate)
	if err != nil {
		return err
	}

	var cache tasks.MatchCache
	if !cmd.Bool("no-cache") {
		db, err := r.openDatabase()
		if err != nil {
			r.logger.Warn("match cache unavailable, resolving everything fresh", "error", err)
		} else {
			defer db.Close()
			cache = repositories.NewMatchRepository(db)
		}
	}

	backoff := shared.DefaultBackoff()
	if attempts := r.config.Transfer.RetryAttempts; attempts > 0 {
		backoff.MaxAttempts = attempts
	}

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = r.config.Transfer.Workers
	}

	resolver := match.NewResolver(target, match.FromMatching(r.config.Matching))
	engine := tasks.NewTransferEngine(source, target, resolver, tasks.Options{
		Workers: workers,
		Backoff: backoff,
		Cache:   cache,
		Logger:  r.logger,
	})

	job := tasks.NewJob(tasks.TransferRequest{
		SourcePlaylistID: playlistID,
		PlaylistName:     cmd.String("name"),
		TargetPlaylistID: cmd.String("into"),
		SkipDuplicates:   cmd.Bool("skip-duplicates"),
	})

	r.logger.Info("starting transfer", "job", job.ID(), "source", sourceName, "target", targetName, "playlist", playlistID)
	r.writePlain("Transferring %s → %s\n\n", sourceName, targetName)

	progressCh := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Resolve:
				r.writePlain("   %s\n", update.Message)
			case tasks.Write:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	report, runErr := engine.Run(ctx, job, progressCh)
	close(progressCh)
	<-done

	if report != nil {
		r.writePlain("\n")
		if err := formatter.WriteReport(r.output, report, cmd.String("format")); err != nil {
			return err
		}
	}

	return runErr
}
