// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand starts the bridge HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the bridge HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured listen port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Create a config.toml from the embedded template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the token persistence database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// connectCommand opens the bridge's login route in the browser.
func connectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "connect",
		Usage:  "Connect a Spotify account via the running bridge's OAuth flow",
		Action: r.Connect,
	}
}

// playbackCommand controls playback through a running bridge.
func playbackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playback",
		Aliases: []string{"pb"},
		Usage:   "Control playback through a running bridge",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the current player state",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaybackStatus,
			},
			{
				Name:   "play",
				Usage:  "Resume playback",
				Action: r.PlaybackPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlaybackPause,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.PlaybackNext,
			},
			{
				Name:   "previous",
				Usage:  "Skip to the previous track",
				Action: r.PlaybackPrevious,
			},
			{
				Name:  "volume",
				Usage: "Set playback volume (0-100)",
				Arguments: []cli.Argument{
					&cli.IntArg{
						Name: "level",
					},
				},
				Action: r.PlaybackVolume,
			},
		},
	}
}

// apiCommand handles direct calls against a running bridge.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls to a running bridge",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the bridge, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
