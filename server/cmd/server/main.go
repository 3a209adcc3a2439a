// regionstats-server answers per-region latency and uptime statistics over a
// telemetry file loaded once at startup.
//
// Usage:
//
//	regionstats-server [serve] --config config/server.yaml
//	regionstats-server check --dataset data/telemetry.jsonl
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "regionstats-server",
		Usage:   "Per-region latency and uptime statistics over a static telemetry file",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to config file; defaults apply when it does not exist",
				EnvVars: []string{"REGIONSTATS_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port; overrides server.http_port",
				EnvVars: []string{"REGIONSTATS_PORT"},
			},
			&cli.StringSliceFlag{
				Name:    "dataset",
				Aliases: []string{"d"},
				Usage:   "telemetry file to load (repeatable); replaces the candidate list",
				EnvVars: []string{"REGIONSTATS_DATASET"},
			},
		},
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Load the dataset and serve the HTTP API",
				Action: serveAction,
			},
			{
				Name:   "check",
				Usage:  "Load the dataset, print a summary, and exit",
				Action: checkAction,
			},
		},
	}
}
