package annotations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"verdict/internal/tasks"
	"verdict/pkg/ledger"
	"verdict/pkg/pagination"
	"verdict/pkg/storage"
	"verdict/pkg/urlkey"
)

type repository struct {
	store  storage.System
	tasks  tasks.System
	pages  *pagination.Config
	logger *slog.Logger
}

// New creates an annotations system backed by remote blob storage with a
// local CSV cache.
func New(store storage.System, registry tasks.System, pages *pagination.Config, logger *slog.Logger) System {
	return &repository{
		store:  store,
		tasks:  registry,
		pages:  pages,
		logger: logger.With("system", "annotations"),
	}
}

func (r *repository) Handler() *Handler {
	return NewHandler(r, r.pages, r.logger)
}

func (r *repository) Load(ctx context.Context, taskID string) (*ledger.Table, *SyncWarning, error) {
	task, err := r.tasks.Find(taskID)
	if err != nil {
		return nil, nil, err
	}

	table, warning := r.fetch(ctx, *task)
	return table, warning, nil
}

func (r *repository) Record(ctx context.Context, cmd RecordCommand) (*RecordResult, error) {
	task, err := r.tasks.Find(cmd.TaskID)
	if err != nil {
		return nil, err
	}

	if cmd.OriginalURL == "" || cmd.GeneratedURL == "" {
		return nil, ErrImageRequired
	}

	label, err := ledger.ParseLabel(cmd.Label)
	if err != nil {
		return nil, err
	}

	table, warning := r.fetch(ctx, *task)

	judgment := ledger.Judgment{
		OriginalKey:  urlkey.Extract(cmd.OriginalURL),
		GeneratedKey: urlkey.Extract(cmd.GeneratedURL),
		Label:        label,
		RecordedAt:   ledger.Today(),
	}
	table.Upsert(judgment)

	data, err := ledger.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("serialize ledger: %w", err)
	}

	result := &RecordResult{
		Task:     task.ID,
		Judgment: judgment,
		Cache:    r.writeCache(*task, data),
		Remote:   r.writeRemote(ctx, *task, data),
		Warning:  warning,
	}

	r.logger.Info("judgment recorded",
		"task", task.ID,
		"original", judgment.OriginalKey,
		"generated", judgment.GeneratedKey,
		"label", judgment.Label,
		"remote_synced", result.Remote.Synced,
		"cache_synced", result.Cache.Synced)

	return result, nil
}

func (r *repository) SetComplete(ctx context.Context, taskID, original string, expectedGenerated []string) (bool, *SyncWarning, error) {
	task, err := r.tasks.Find(taskID)
	if err != nil {
		return false, nil, err
	}

	table, warning := r.fetch(ctx, *task)
	complete := table.SetComplete(urlkey.Extract(original), urlkey.ExtractAll(expectedGenerated))

	return complete, warning, nil
}

func (r *repository) Progress(ctx context.Context, taskID string) (*ProgressReport, error) {
	task, err := r.tasks.Find(taskID)
	if err != nil {
		return nil, err
	}

	table, warning := r.fetch(ctx, *task)

	return &ProgressReport{
		Task:                task.ID,
		Annotated:           table.Len(),
		FullyAnnotated:      table.CountComplete(tasks.CandidatesPerSet),
		ExpectedPerOriginal: tasks.CandidatesPerSet,
		Warning:             warning,
	}, nil
}

func (r *repository) Rows(ctx context.Context, taskID string, page pagination.PageRequest) (*pagination.PageResult[ledger.Judgment], *SyncWarning, error) {
	task, err := r.tasks.Find(taskID)
	if err != nil {
		return nil, nil, err
	}

	table, warning := r.fetch(ctx, *task)
	rows := table.Rows()

	if term := strings.ToLower(page.SearchTerm()); term != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if strings.Contains(strings.ToLower(row.OriginalKey), term) ||
				strings.Contains(strings.ToLower(row.GeneratedKey), term) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	page.Normalize(*r.pages)
	result := pagination.Paginate(rows, page)

	return &result, warning, nil
}

// fetch re-reads the remote ledger. Absence is normal for a task nobody has
// reviewed yet; any other failure degrades to an empty table with a warning
// so the review flow keeps moving.
func (r *repository) fetch(ctx context.Context, task tasks.Task) (*ledger.Table, *SyncWarning) {
	key := r.tasks.LedgerKey(task)

	download, err := r.store.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ledger.NewTable(), nil
		}

		r.logger.Warn("ledger download failed", "task", task.ID, "key", key, "error", err)
		return ledger.NewTable(), &SyncWarning{Op: "download", Err: err.Error()}
	}
	defer download.Body.Close()

	data, err := io.ReadAll(download.Body)
	if err != nil {
		r.logger.Warn("ledger read failed", "task", task.ID, "key", key, "error", err)
		return ledger.NewTable(), &SyncWarning{Op: "download", Err: err.Error()}
	}

	table, err := ledger.Unmarshal(data)
	if err != nil {
		r.logger.Warn("ledger malformed, starting empty", "task", task.ID, "key", key, "error", err)
		return ledger.NewTable(), &SyncWarning{Op: "decode", Err: err.Error()}
	}

	return table, nil
}

func (r *repository) writeRemote(ctx context.Context, task tasks.Task, data []byte) SyncStatus {
	key := r.tasks.LedgerKey(task)

	if err := r.store.Upload(ctx, key, bytes.NewReader(data), "text/csv"); err != nil {
		r.logger.Warn("ledger upload failed", "task", task.ID, "key", key, "error", err)
		return SyncStatus{Destination: key, Error: err.Error()}
	}

	return SyncStatus{Destination: key, Synced: true}
}

// writeCache replaces the local ledger file through a temp-and-rename so a
// crash mid-write never leaves a truncated CSV behind.
func (r *repository) writeCache(task tasks.Task, data []byte) SyncStatus {
	path := r.tasks.CachePath(task)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.logger.Warn("ledger cache write failed", "task", task.ID, "path", path, "error", err)
		return SyncStatus{Destination: path, Error: err.Error()}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*")
	if err != nil {
		r.logger.Warn("ledger cache write failed", "task", task.ID, "path", path, "error", err)
		return SyncStatus{Destination: path, Error: err.Error()}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		r.logger.Warn("ledger cache write failed", "task", task.ID, "path", path, "error", err)
		return SyncStatus{Destination: path, Error: err.Error()}
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		r.logger.Warn("ledger cache write failed", "task", task.ID, "path", path, "error", err)
		return SyncStatus{Destination: path, Error: err.Error()}
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		r.logger.Warn("ledger cache write failed", "task", task.ID, "path", path, "error", err)
		return SyncStatus{Destination: path, Error: err.Error()}
	}

	return SyncStatus{Destination: path, Synced: true}
}
