// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
	}
}

// initCommand prepares the config file and the match cache database.
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a config file and initialize the match cache database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Init,
	}
}

// playlistsCommand lists a provider's playlists, Liked Songs included.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists on a provider",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Provider to list (spotify, tidal, or qobuz)",
				Value:   "spotify",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
	}
}

// transferCommand runs playlist transfers.
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "transfer",
		Aliases: []string{"tx"},
		Usage:   "Transfer playlists between providers",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Transfer one playlist from a source provider to a target provider",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Source provider (spotify, tidal, or qobuz)",
						Value:   "spotify",
					},
					&cli.StringFlag{
						Name:    "target",
						Aliases: []string{"t"},
						Usage:   "Target provider (spotify, tidal, or qobuz)",
						Value:   "tidal",
					},
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Source playlist ID, or \"liked\" for Liked Songs",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Name for the created target playlist (defaults to the source name)",
					},
					&cli.StringFlag{
						Name:  "into",
						Usage: "Append to this existing target playlist instead of creating one",
					},
					&cli.BoolFlag{
						Name:  "skip-duplicates",
						Usage: "Skip tracks already present in the target playlist (with --into)",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent track resolvers",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format: text, json, or csv",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Skip the match cache for this run",
					},
				},
				Action: r.TransferRun,
			},
		},
	}
}

// cacheCommand inspects and clears the match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the match cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached match counts per target provider",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheStats,
			},
			{
				Name:  "clear",
				Usage: "Delete cached matches for a target provider",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Target provider to clear",
						Required: true,
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
