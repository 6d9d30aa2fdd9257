package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
)

// Playlists lists the playlists on one provider, the virtual Liked Songs
// entry included.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	providerName := cmd.String("provider")
	provider, err := r.providerFor(ctx, providerName, r.config.Transfer.SourceRate)
	if err != nil {
		return err
	}

	r.logger.Info("listing playlists", "provider", providerName)
	playlists, err := provider.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		data, err := json.MarshalIndent(playlists, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal playlists: %w", err)
		}
		return r.writePlain("%s\n", data)
	}

	r.writePlain("Playlists on %s:\n", providerName)
	for i, pl := range playlists {
		r.writePlain("%3d. %s (%s)\n", i+1, pl.Name, pl.ID)
	}
	return nil
}
