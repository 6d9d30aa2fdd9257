package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/tracklift/tracklift/internal/repositories"
)

// CacheStats prints cached match counts per target provider.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewMatchRepository(db)
	r.writePlain("Match cache (%s):\n", r.config.Database.Path)
	for _, provider := range []string{"spotify", "tidal", "qobuz"} {
		n, err := repo.Count(provider)
		if err != nil {
			return err
		}
		r.writePlain("  %s: %d cached matches\n", provider, n)
	}
	return nil
}

// CacheClear deletes cached matches for one target provider.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewMatchRepository(db)
	deleted, err := repo.Purge(cmd.String("provider"))
	if err != nil {
		return err
	}

	r.logger.Info("cleared match cache", "provider", cmd.String("provider"), "deleted", deleted)
	r.writePlain("Deleted %d cached matches for %s\n", deleted, cmd.String("provider"))
	return nil
}
