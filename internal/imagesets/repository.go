package imagesets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"verdict/internal/annotations"
	"verdict/internal/tasks"
	"verdict/pkg/pagination"
	"verdict/pkg/storage"
)

type repository struct {
	cfg     *Config
	store   storage.System
	tasks   tasks.System
	ledgers annotations.System
	pages   *pagination.Config
	logger  *slog.Logger
}

// New creates an image-set system serving pre-built set files and rebuilding
// them from blob storage.
func New(cfg *Config, store storage.System, registry tasks.System, ledgers annotations.System, pages *pagination.Config, logger *slog.Logger) System {
	return &repository{
		cfg:     cfg,
		store:   store,
		tasks:   registry,
		ledgers: ledgers,
		pages:   pages,
		logger:  logger.With("system", "imagesets"),
	}
}

func (r *repository) Handler() *Handler {
	return NewHandler(r, r.pages, r.logger)
}

func (r *repository) List(ctx context.Context, query ListQuery) (*pagination.PageResult[ImageSet], *annotations.SyncWarning, error) {
	task, err := r.tasks.Find(query.TaskID)
	if err != nil {
		return nil, nil, err
	}

	sets, err := r.loadSets(*task)
	if err != nil {
		return nil, nil, err
	}

	var warning *annotations.SyncWarning
	if query.Pending {
		table, w, err := r.ledgers.Load(ctx, task.ID)
		if err != nil {
			return nil, nil, err
		}
		warning = w

		remaining := sets[:0]
		for _, set := range sets {
			if set.pending(table) {
				remaining = append(remaining, set)
			}
		}
		sets = remaining
	}

	if term := strings.ToLower(query.Page.SearchTerm()); term != "" {
		filtered := sets[:0]
		for _, set := range sets {
			if strings.Contains(strings.ToLower(set.OriginalKey()), term) {
				filtered = append(filtered, set)
			}
		}
		sets = filtered
	}

	query.Page.Normalize(*r.pages)
	result := pagination.Paginate(sets, query.Page)

	return &result, warning, nil
}

// loadSets reads a task's image-set file. The file is a build artifact, so
// unlike the ledger it is read strictly: malformed content is an error, not
// an empty result.
func (r *repository) loadSets(task tasks.Task) ([]ImageSet, error) {
	path := r.setsPath(task)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSets, task.ID)
		}
		return nil, fmt.Errorf("read image sets %s: %w", path, err)
	}

	var sets []ImageSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse image sets %s: %w", path, err)
	}

	for i, set := range sets {
		if err := set.Validate(); err != nil {
			return nil, fmt.Errorf("image sets %s: set %d: %w", path, i, err)
		}
	}

	return sets, nil
}

func (r *repository) setsPath(task tasks.Task) string {
	return filepath.Join(r.cfg.SetsDir, task.SetsFile)
}
