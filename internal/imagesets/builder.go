package imagesets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"verdict/internal/tasks"
	"verdict/pkg/formatting"
)

// listPageSize bounds each blob listing request; the builder pages through
// with markers until the prefix is exhausted.
const listPageSize = 1000

type buildOutcome struct {
	set        *ImageSet
	signFailed bool
}

func (r *repository) Build(ctx context.Context, taskID string) (*BuildReport, error) {
	task, err := r.tasks.Find(taskID)
	if err != nil {
		return nil, err
	}

	originals, scanned, err := r.listOriginals(ctx, *task)
	if err != nil {
		return nil, err
	}

	ttl := r.cfg.TTL()
	outcomes := make([]buildOutcome, len(originals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workerCount(len(originals)))

	for i, key := range originals {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			outcome, err := r.buildSet(gctx, *task, key, ttl)
			if err != nil {
				return fmt.Errorf("original %s: %w", key, err)
			}

			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &BuildReport{
		Task:         task.ID,
		File:         r.setsPath(*task),
		Originals:    len(originals),
		ScannedBytes: scanned,
	}

	sets := make([]ImageSet, 0, len(originals))
	for _, outcome := range outcomes {
		switch {
		case outcome.set != nil:
			sets = append(sets, *outcome.set)
		case outcome.signFailed:
			report.SignFailures++
		default:
			report.Incomplete++
		}
	}
	report.Sets = len(sets)

	if err := r.writeSets(*task, sets); err != nil {
		return nil, err
	}

	r.logger.Info("image sets built",
		"task", task.ID,
		"file", report.File,
		"originals", report.Originals,
		"scanned", formatting.FormatBytes(report.ScannedBytes, 1),
		"sets", report.Sets,
		"incomplete", report.Incomplete,
		"sign_failures", report.SignFailures)

	return report, nil
}

func (r *repository) listOriginals(ctx context.Context, task tasks.Task) ([]string, int64, error) {
	var keys []string
	var scanned int64
	marker := ""

	for {
		result, err := r.store.List(ctx, task.OriginalsPrefix, marker, listPageSize)
		if err != nil {
			return nil, 0, fmt.Errorf("list originals under %s: %w", task.OriginalsPrefix, err)
		}

		for _, obj := range result.Objects {
			// Directory placeholders surface as keys with a trailing slash.
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			keys = append(keys, obj.Key)
			scanned += obj.Size
		}

		if result.NextMarker == "" {
			return keys, scanned, nil
		}
		marker = result.NextMarker
	}
}

// buildSet probes an original's candidates and pre-signs the full set. A
// missing candidate or a signing failure skips the set without failing the
// build; storage probe errors abort it.
func (r *repository) buildSet(ctx context.Context, task tasks.Task, originalKey string, ttl time.Duration) (buildOutcome, error) {
	candidates := candidateKeys(task, originalKey)

	for _, key := range candidates {
		exists, err := r.store.Exists(ctx, key)
		if err != nil {
			return buildOutcome{}, fmt.Errorf("probe %s: %w", key, err)
		}
		if !exists {
			r.logger.Debug("candidate missing, skipping set", "original", originalKey, "candidate", key)
			return buildOutcome{}, nil
		}
	}

	set := &ImageSet{Generated: make([]string, 0, len(candidates))}

	signed, err := r.store.SignedURL(ctx, originalKey, ttl)
	if err != nil {
		r.logger.Warn("pre-sign failed", "key", originalKey, "error", err)
		return buildOutcome{signFailed: true}, nil
	}
	set.Original = signed

	for _, key := range candidates {
		signed, err := r.store.SignedURL(ctx, key, ttl)
		if err != nil {
			r.logger.Warn("pre-sign failed", "key", key, "error", err)
			return buildOutcome{signFailed: true}, nil
		}
		set.Generated = append(set.Generated, signed)
	}

	return buildOutcome{set: set}, nil
}

// candidateKeys derives the expected generated-image keys for an original:
// {GeneratedPrefix}generated_{stem}_{i}.png for i in [0, CandidatesPerSet).
func candidateKeys(task tasks.Task, originalKey string) []string {
	stem := strings.TrimSuffix(path.Base(originalKey), path.Ext(originalKey))

	keys := make([]string, tasks.CandidatesPerSet)
	for i := range keys {
		keys[i] = fmt.Sprintf("%sgenerated_%s_%d.png", task.GeneratedPrefix, stem, i)
	}
	return keys
}

func (r *repository) workerCount(n int) int {
	limit := r.cfg.Workers
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return max(min(limit, n), 1)
}

// writeSets atomically replaces the task's image-set file so readers never
// observe a half-written artifact.
func (r *repository) writeSets(task tasks.Task, sets []ImageSet) error {
	data, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize image sets: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(r.cfg.SetsDir, 0o755); err != nil {
		return fmt.Errorf("create sets dir: %w", err)
	}

	tmp, err := os.CreateTemp(r.cfg.SetsDir, ".sets-*")
	if err != nil {
		return fmt.Errorf("write image sets: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write image sets: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write image sets: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.setsPath(task)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write image sets: %w", err)
	}

	return nil
}
