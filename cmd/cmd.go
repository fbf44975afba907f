// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func openFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "open",
		Usage: "Open the authorization URL in the default browser",
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
			Usage: "Pretty-print output",
		},
	}
}

// setupCommand writes the starter config and prepares the sqlite credential store
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file or initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a starter config.toml",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the sqlite database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand manages the Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize spx with Spotify",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Run the browser authorization flow",
				Flags:  []cli.Flag{configFlag(), openFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the authorized account and token expiry",
				Flags:  append([]cli.Flag{configFlag()}, outputFlags()...),
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove stored credentials",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// playerCommand reads remote player state
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "player",
		Usage: "Inspect playback state and devices",
		Commands: []*cli.Command{
			{
				Name:   "state",
				Usage:  "Show what is playing",
				Flags:  append([]cli.Flag{configFlag(), openFlag()}, outputFlags()...),
				Action: r.PlayerState,
			},
			{
				Name:  "devices",
				Usage: "List playback devices",
				Flags: append([]cli.Flag{
					configFlag(),
					openFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv or json",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the listing to a file instead of stdout",
					},
				}, outputFlags()...),
				Action: r.PlayerDevices,
			},
			{
				Name:  "watch",
				Usage: "Follow playback state as it changes",
				Flags: []cli.Flag{
					configFlag(),
					openFlag(),
					&cli.DurationFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Polling interval (defaults to sync.interval)",
					},
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Stop after this many state changes (0 runs until interrupted)",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Open the interactive terminal UI",
					},
					&cli.StringFlag{
						Name:  "log-file",
						Usage: "Log destination while the terminal UI is running",
						Value: "./tmp/spx-tui.log",
					},
				},
				Action: r.PlayerWatch,
			},
		},
	}
}

// profileCommand lists and applies configured playback profiles
func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Apply named playback profiles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List profiles from the config file",
				Flags: append([]cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, markdown or json",
						Value:   "text",
					},
				}, outputFlags()...),
				Action: r.ProfileList,
			},
			{
				Name:      "apply",
				Usage:     "Apply a profile to a device",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: append([]cli.Flag{
					configFlag(),
					openFlag(),
					&cli.StringFlag{
						Name:    "device",
						Aliases: []string{"d"},
						Usage:   "Device name or ID (defaults to the active device)",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Abort the profile after this long",
						Value: time.Minute,
					},
				}, outputFlags()...),
				Action: r.ProfileApply,
			},
		},
	}
}
