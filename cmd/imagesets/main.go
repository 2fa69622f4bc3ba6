package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"verdict/internal/annotations"
	"verdict/internal/config"
	"verdict/internal/imagesets"
	"verdict/internal/infrastructure"
	"verdict/internal/tasks"
	"verdict/pkg/formatting"
)

func main() {
	var (
		taskID = flag.String("task", "", "Build image sets for a single task id")
		all    = flag.Bool("all", false, "Build image sets for every configured task")
		out    = flag.String("out", "", "Output directory for image-set files (overrides config)")
		ttl    = flag.Duration("ttl", 0, "Signing window for image URLs (overrides config)")
	)
	flag.Parse()

	if (*taskID == "" && !*all) || (*taskID != "" && *all) {
		fmt.Println("usage: imagesets [-task <id> | -all] [-out <dir>] [-ttl <duration>]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if *out != "" {
		cfg.ImageSets.SetsDir = *out
	}
	if *ttl > 0 {
		cfg.ImageSets.SignTTL = ttl.String()
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		log.Fatalf("infrastructure init failed: %v", err)
	}
	if err := infra.Start(); err != nil {
		log.Fatalf("infrastructure start failed: %v", err)
	}
	infra.Lifecycle.WaitForStartup()
	defer infra.Lifecycle.Shutdown(10 * time.Second)

	registry := tasks.New(&cfg.Tasks, infra.Logger)
	ledgers := annotations.New(infra.Storage, registry, &cfg.API.Pagination, infra.Logger)
	sets := imagesets.New(
		&cfg.ImageSets,
		infra.Storage,
		registry,
		ledgers,
		&cfg.API.Pagination,
		infra.Logger,
	)

	ids := []string{*taskID}
	if *all {
		ids = ids[:0]
		for _, task := range registry.List() {
			ids = append(ids, task.ID)
		}
	}

	ctx := context.Background()
	failed := false
	for _, id := range ids {
		report, err := sets.Build(ctx, id)
		if err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: build failed: %v\n", id, err)
			continue
		}

		fmt.Printf(
			"%s: %d originals (%s), %d sets written to %s\n",
			report.Task, report.Originals,
			formatting.FormatBytes(report.ScannedBytes, 1),
			report.Sets, report.File,
		)
		if report.Incomplete > 0 {
			fmt.Printf("%s: %d originals skipped with missing candidates\n",
				report.Task, report.Incomplete)
		}
		if report.SignFailures > 0 {
			failed = true
			fmt.Fprintf(os.Stderr, "%s: %d originals dropped by signing failures\n",
				report.Task, report.SignFailures)
		}
	}

	if failed {
		os.Exit(1)
	}
}
