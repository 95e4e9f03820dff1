package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/redirect"
	"github.com/starford/raido/internal/storage"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Docs.Root = root
	}
	if snap := cmd.String("snapshot"); snap != "" {
		cfg.Snapshot.Path = snap
	}
	return cfg, nil
}

func newService(cfg *internal.Config) (*docservice.Service, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Docs.Root)
	if err != nil {
		return nil, err
	}
	return docservice.New(store, cfg.Snapshot.Path, cfg.Docs.Workers, logger), nil
}

// exitStatus maps a run's warning count to the process exit status:
// 0 clean, 2 completed with warnings. Fatal errors exit 1 via main.
func exitStatus(warnings int) error {
	if warnings > 0 {
		return cli.Exit(fmt.Sprintf("completed with %d warning(s)", warnings), 2)
	}
	return nil
}

func runPrepare(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	res, err := svc.Prepare(ctx, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Println("DRY RUN: no files or snapshot will be written")
		fmt.Print(res.Preview)
		fmt.Printf("\nwould write snapshot to %s\n", cfg.Snapshot.Path)
	} else {
		fmt.Printf("prepare complete: %d tracked, %d newly assigned, %d problem(s)\n",
			res.Tracked, res.Assigned, len(res.Problems))
		fmt.Printf("snapshot written to %s\n", cfg.Snapshot.Path)
	}
	for _, p := range res.Problems {
		fmt.Printf("warning: %s: %v\n", p.Loc, p.Err)
	}
	return exitStatus(res.Warnings())
}

func runRewrite(ctx context.Context, cmd *cli.Command, resolveMode bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	var res *docservice.RewriteResult
	if resolveMode {
		res, err = svc.Resolve(ctx, dryRun)
	} else {
		res, err = svc.Convert(ctx, dryRun)
	}
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Println("DRY RUN: no files will be written")
		fmt.Print(res.Preview)
		fmt.Printf("\nwould rewrite %d document(s)\n", res.Changed)
	} else {
		fmt.Printf("rewrote %d document(s)\n", res.Changed)
	}
	for _, d := range res.Diagnostics {
		fmt.Printf("warning: unresolved reference: %s\n", d)
	}
	for _, p := range res.Problems {
		fmt.Printf("warning: %s: %v\n", p.Loc, p.Err)
	}
	return exitStatus(res.Warnings())
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	res, err := svc.Build(ctx)
	if err != nil {
		return err
	}

	d := res.Delta
	fmt.Printf("build complete: %d unchanged, %d moved, %d added, %d removed, %d newly assigned\n",
		len(d.Unchanged), len(d.Moved), len(d.Added), len(d.Removed), res.Assigned)

	for _, rule := range res.Rules {
		fmt.Printf("redirect: %s -> %s\n", rule.From, rule.To)
	}
	for _, id := range d.Removed {
		fmt.Printf("warning: removed with no destination: %s\n", id)
	}
	for _, p := range res.Problems {
		fmt.Printf("warning: %s: %v\n", p.Loc, p.Err)
	}

	if out := cmd.String("out"); out != "" {
		data, err := redirect.EncodeYAML(res.Rules)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(out)
		if err != nil {
			return err
		}
		if err := storage.AtomicWrite(abs, data); err != nil {
			return err
		}
		fmt.Printf("redirect rules written to %s\n", out)
	}
	return exitStatus(res.Warnings())
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	res, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("tracked: %d\nuntracked: %d\nproblems: %d\n",
		res.Tracked, res.Untracked, len(res.Problems))
	if res.HasSnapshot {
		fmt.Printf("snapshot: %s (age %s)\n", cfg.Snapshot.Path, res.SnapshotAge.Round(time.Second))
		fmt.Printf("pending: %d moved, %d added, %d removed\n", res.Moved, res.Added, res.Removed)
	} else {
		fmt.Println("snapshot: none (run prepare)")
	}
	for _, p := range res.Problems {
		fmt.Printf("warning: %s: %v\n", p.Loc, p.Err)
	}
	return exitStatus(len(res.Problems))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Docs.Root)
	if err != nil {
		return err
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(store, db, cfg.Snapshot.Path).ServeStdio()
}

func main() {
	dryRunFlag := &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Compute and print the full change set without writing anything",
	}

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Durable document identities for reorganizable documentation trees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Documentation tree root (overrides config)",
				Sources: cli.EnvVars("RAIDO_DOCS_ROOT"),
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Usage:   "Snapshot artifact path (overrides config)",
				Sources: cli.EnvVars("RAIDO_SNAPSHOT_PATH"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "prepare",
				Usage:  "Scan the tree, assign identifiers, and persist the before-snapshot",
				Flags:  []cli.Flag{dryRunFlag},
				Action: runPrepare,
			},
			{
				Name:  "convert",
				Usage: "Rewrite relative links to tracked documents into durable identifier links",
				Flags: []cli.Flag{dryRunFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runRewrite(ctx, cmd, false)
				},
			},
			{
				Name:  "build",
				Usage: "Diff the tree against the before-snapshot and emit redirect rules",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write redirect rules to this YAML file",
					},
				},
				Action: runBuild,
			},
			{
				Name:  "resolve",
				Usage: "Rewrite identifier links back into relative paths against the current tree",
				Flags: []cli.Flag{dryRunFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runRewrite(ctx, cmd, true)
				},
			},
			{
				Name:   "status",
				Usage:  "Report tracked documents and pending moves against the snapshot",
				Action: runStatus,
			},
			{
				Name:   "serve",
				Usage:  "Run the resolution API with a live tree watcher",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP stdio server exposing resolution tools",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
