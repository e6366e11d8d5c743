// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// serveCommand runs the HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and storage",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the latest migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.RollbackDatabase,
			},
		},
	}
}

// searchCommand searches videos
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search videos",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags:  outputFlags(),
		Action: r.Search,
	}
}

// playlistCommand groups playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "sync",
				Usage:     "Mirror an upstream playlist into the store",
				ArgsUsage: "<link>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Flags:  outputFlags(),
				Action: r.PlaylistSync,
			},
			{
				Name:      "search",
				Usage:     "Search playlists",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags:  outputFlags(),
				Action: r.PlaylistSearch,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored playlists",
				Flags:   outputFlags(),
				Action:  r.PlaylistList,
			},
			{
				Name:      "export",
				Usage:     "Sync a playlist and export it to a file",
				ArgsUsage: "<link>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown, m3u or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (directory for markdown)",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a stored playlist",
				ArgsUsage: "<link>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Action: r.PlaylistDelete,
			},
			{
				Name:      "download",
				Usage:     "Sync a playlist and download every track",
				ArgsUsage: "<link>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: soundpy_{timestamp})",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent downloads (1-8)",
						Value:   3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Downloads started per second",
						Value: 1,
					},
				}, outputFlags()...),
				Action: r.PlaylistDownload,
			},
		},
	}
}

// downloadCommand downloads one video's audio
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download the audio of one video",
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   ".",
			},
		},
		Action: r.Download,
	}
}

// streamCommand prints a direct audio stream URL
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Resolve a direct audio stream URL",
		ArgsUsage: "<id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  outputFlags(),
		Action: r.Stream,
	}
}
