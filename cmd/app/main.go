package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/timeshift/internal"
	"github.com/starford/timeshift/internal/runservice"
	pkgconfig "github.com/starford/timeshift/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func adjust(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	filters, err := parseFilters(cmd.StringSlice("filter"))
	if err != nil {
		return err
	}
	req := runservice.Request{
		Hours:     int(cmd.Int("hours")),
		StartDate: cmd.String("start-date"),
		Backward:  cmd.Bool("backward"),
		Filters:   filters,
		Preset:    cmd.String("preset"),
	}
	return internal.RunAdjust(ctx, req, internal.WithConfig(cfg))
}

// parseFilters turns Name=Value pairs into a filter map.
func parseFilters(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q, want Name=Value", p)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

func properties(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunProperties(ctx, internal.WithConfig(cfg))
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "timeshift",
		Usage:   "Shift the Date property of Notion database records by a number of hours",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP service",
				Action: serve,
			},
			{
				Name:   "adjust",
				Usage:  "Shift dates once and print the summary",
				Action: adjust,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "hours",
						Usage:    "Hours to shift; negative moves dates earlier",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "start-date",
						Aliases:  []string{"s"},
						Usage:    "Only records starting on or after this date are shifted",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "backward",
						Usage: "Treat --hours as a magnitude and shift earlier",
					},
					&cli.StringSliceFlag{
						Name:    "filter",
						Aliases: []string{"f"},
						Usage:   "Property filter as Name=Value; repeatable",
					},
					&cli.StringFlag{
						Name:  "preset",
						Usage: "Named filter preset",
					},
				},
			},
			{
				Name:   "properties",
				Usage:  "List the database properties and whether they can be filtered on",
				Action: properties,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
