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

func fragmentFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "fragment",
		Usage: "Redirect fragment (access_token=...&refresh_token=...) from a previous login; skips the browser",
	}
}

// setupCommand creates the configuration file and the snapshot database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and run database migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "print",
				Usage: "Print the effective configuration and exit",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the authorization front door on its own.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the local authorization server (/login, /callback, /refresh_token)",
		Action: r.Serve,
	}
}

// statsCommand prints one chart.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Count saved tracks by day, month, year, weekday or genre",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "by",
				Aliases: []string{"b"},
				Usage:   "Bucketing policy: day, month, year, weekday, genre",
				Value:   "month",
			},
			fragmentFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Plain output format: chart, csv, markdown, txt",
				Value:   "chart",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Save the chart as a snapshot",
			},
		},
		Action: r.Stats,
	}
}

// exportCommand writes every chart to files.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write one file per policy plus a manifest",
		Flags: []cli.Flag{
			fragmentFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: json, csv, markdown, txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: libstats_export_<epoch>)",
			},
			&cli.StringSliceFlag{
				Name:  "by",
				Usage: "Policies to export (default: all)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent export workers",
				Value: 3,
			},
		},
		Action: r.Export,
	}
}

// snapshotsCommand manages saved charts.
func snapshotsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "snapshots",
		Aliases: []string{"snap"},
		Usage:   "Manage saved charts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved snapshots",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "by",
						Usage: "Only snapshots of this policy",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Show only the most recent snapshots",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SnapshotsList,
			},
			{
				Name:  "show",
				Usage: "Render a saved snapshot",
				Arguments: []cli.Argument{
					&cli.IntArg{Name: "sequence"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SnapshotsShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a saved snapshot",
				Arguments: []cli.Argument{
					&cli.IntArg{Name: "sequence"},
				},
				Action: r.SnapshotsDelete,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive charts.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse charts interactively",
		Flags: []cli.Flag{
			fragmentFlag(),
			&cli.StringFlag{
				Name:  "by",
				Usage: "Initial policy",
				Value: "month",
			},
		},
		Action: r.TUI,
	}
}
