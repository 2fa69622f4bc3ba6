package annotations_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verdict/internal/annotations"
	"verdict/internal/tasks"
	"verdict/pkg/ledger"
	"verdict/pkg/pagination"
	"verdict/pkg/storage"
)

const (
	originalURL  = "https://verdictstore.blob.core.windows.net/dpoimages/bone_marrow_train_flat/img_001.png?sp=r&sig=abc123"
	generatedURL = "https://verdictstore.blob.core.windows.net/dpoimages/bone_marrow_generated_flat/generated_img_001_0.png?sp=r&sig=def456"

	originalKey  = "dpoimages/bone_marrow_train_flat/img_001.png"
	generatedKey = "dpoimages/bone_marrow_generated_flat/generated_img_001_0.png"
)

type fixture struct {
	sys      annotations.System
	store    storage.System
	registry tasks.System
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newStore(t)
	registry := newTaskRegistry(t, filepath.Join(t.TempDir(), "project"))

	return &fixture{
		sys:      annotations.New(store, registry, newPages(t), discard()),
		store:    store,
		registry: registry,
	}
}

func newStore(t *testing.T) storage.System {
	t.Helper()

	cfg := &storage.Config{
		Provider: storage.ProviderLocal,
		Root:     t.TempDir(),
	}

	store, err := storage.New(cfg, discard())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	return store
}

func newTaskRegistry(t *testing.T, localDir string) tasks.System {
	t.Helper()

	cfg := &tasks.Config{LocalDir: localDir}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("tasks config Finalize() error = %v", err)
	}
	return tasks.New(cfg, discard())
}

func newPages(t *testing.T) *pagination.Config {
	t.Helper()

	pages := &pagination.Config{}
	if err := pages.Finalize(nil); err != nil {
		t.Fatalf("pagination config Finalize() error = %v", err)
	}
	return pages
}

func record(t *testing.T, sys annotations.System, original, generated string, label ledger.Label) *annotations.RecordResult {
	t.Helper()

	result, err := sys.Record(context.Background(), annotations.RecordCommand{
		TaskID:       "bone",
		OriginalURL:  original,
		GeneratedURL: generated,
		Label:        string(label),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	return result
}

func TestLoadEmptyWhenAbsent(t *testing.T) {
	fix := newFixture(t)

	table, warning, err := fix.sys.Load(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if warning != nil {
		t.Errorf("warning = %+v, want nil for a missing ledger", warning)
	}
	if table.Len() != 0 {
		t.Errorf("table.Len() = %d, want 0", table.Len())
	}
}

func TestLoadUnknownTask(t *testing.T) {
	fix := newFixture(t)

	if _, _, err := fix.sys.Load(context.Background(), "retina"); !errors.Is(err, tasks.ErrNotFound) {
		t.Errorf("Load(retina) error = %v, want ErrNotFound", err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	result := record(t, fix.sys, originalURL, generatedURL, ledger.Plausible)

	if result.Judgment.OriginalKey != originalKey {
		t.Errorf("OriginalKey = %q, want %q", result.Judgment.OriginalKey, originalKey)
	}
	if result.Judgment.GeneratedKey != generatedKey {
		t.Errorf("GeneratedKey = %q, want %q", result.Judgment.GeneratedKey, generatedKey)
	}
	if !result.Judgment.RecordedAt.Equal(ledger.Today()) {
		t.Errorf("RecordedAt = %v, want today", result.Judgment.RecordedAt)
	}
	if !result.Remote.Synced || !result.Cache.Synced {
		t.Fatalf("sync status = remote %+v cache %+v, want both synced", result.Remote, result.Cache)
	}

	wantCSV := "Original_Image,Generated_Image,Plausibility,Date\n" +
		originalKey + "," + generatedKey + ",Plausible," + ledger.Today().String() + "\n"

	download, err := fix.store.Download(ctx, result.Remote.Destination)
	if err != nil {
		t.Fatalf("Download(remote ledger) error = %v", err)
	}
	defer download.Body.Close()

	remote, err := io.ReadAll(download.Body)
	if err != nil {
		t.Fatalf("read remote ledger: %v", err)
	}
	if string(remote) != wantCSV {
		t.Errorf("remote ledger = %q, want %q", remote, wantCSV)
	}

	cache, err := os.ReadFile(result.Cache.Destination)
	if err != nil {
		t.Fatalf("read cache file: %v", err)
	}
	if string(cache) != string(remote) {
		t.Errorf("cache = %q, want same bytes as remote", cache)
	}

	table, warning, err := fix.sys.Load(ctx, "bone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if warning != nil {
		t.Errorf("warning = %+v, want nil", warning)
	}
	if _, ok := table.Lookup(originalKey, generatedKey); !ok {
		t.Error("recorded judgment not visible on reload")
	}
}

func TestRecordUpsertReplaces(t *testing.T) {
	fix := newFixture(t)

	record(t, fix.sys, originalURL, generatedURL, ledger.Plausible)
	record(t, fix.sys, "other/img.png", "other/generated_img_0.png", ledger.Plausible)
	record(t, fix.sys, originalURL, generatedURL, ledger.Implausible)

	table, _, err := fix.sys.Load(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if table.Len() != 2 {
		t.Fatalf("table.Len() = %d, want 2 after re-judging", table.Len())
	}

	rows := table.Rows()
	if rows[0].OriginalKey != "other/img.png" {
		t.Errorf("rows[0].OriginalKey = %q, want the untouched pair first", rows[0].OriginalKey)
	}

	last := rows[1]
	if last.OriginalKey != originalKey || last.Label != ledger.Implausible {
		t.Errorf("rows[1] = %+v, want re-judged pair at the end with Implausible", last)
	}
}

func TestRecordValidation(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		cmd     annotations.RecordCommand
		wantErr error
	}{
		{
			name: "unknown task",
			cmd: annotations.RecordCommand{
				TaskID:       "retina",
				OriginalURL:  originalURL,
				GeneratedURL: generatedURL,
				Label:        "Plausible",
			},
			wantErr: tasks.ErrNotFound,
		},
		{
			name: "missing original",
			cmd: annotations.RecordCommand{
				TaskID:       "bone",
				GeneratedURL: generatedURL,
				Label:        "Plausible",
			},
			wantErr: annotations.ErrImageRequired,
		},
		{
			name: "missing generated",
			cmd: annotations.RecordCommand{
				TaskID:      "bone",
				OriginalURL: originalURL,
				Label:       "Plausible",
			},
			wantErr: annotations.ErrImageRequired,
		},
		{
			name: "unknown label",
			cmd: annotations.RecordCommand{
				TaskID:       "bone",
				OriginalURL:  originalURL,
				GeneratedURL: generatedURL,
				Label:        "Maybe",
			},
			wantErr: ledger.ErrUnknownLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fix.sys.Record(ctx, tt.cmd); !errors.Is(err, tt.wantErr) {
				t.Errorf("Record() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetCompleteProgression(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	expected := make([]string, tasks.CandidatesPerSet)
	for i := range expected {
		expected[i] = fmt.Sprintf("bone_marrow_generated_flat/generated_img_001_%d.png", i)
	}

	for i, generated := range expected {
		complete, _, err := fix.sys.SetComplete(ctx, "bone", originalURL, expected)
		if err != nil {
			t.Fatalf("SetComplete() error = %v", err)
		}
		if complete {
			t.Fatalf("complete = true after %d of %d judgments", i, len(expected))
		}

		record(t, fix.sys, originalURL, generated, ledger.Plausible)
	}

	complete, _, err := fix.sys.SetComplete(ctx, "bone", originalURL, expected)
	if err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}
	if !complete {
		t.Fatal("complete = false after judging every candidate")
	}

	// Correcting a judgment must not reopen the set.
	record(t, fix.sys, originalURL, expected[2], ledger.Implausible)

	complete, _, err = fix.sys.SetComplete(ctx, "bone", originalURL, expected)
	if err != nil {
		t.Fatalf("SetComplete() error = %v", err)
	}
	if !complete {
		t.Error("complete = false after re-judging one candidate")
	}
}

func TestProgress(t *testing.T) {
	fix := newFixture(t)

	for i := range tasks.CandidatesPerSet {
		record(t, fix.sys, "bone_marrow_train_flat/img_001.png",
			fmt.Sprintf("bone_marrow_generated_flat/generated_img_001_%d.png", i), ledger.Plausible)
	}
	record(t, fix.sys, "bone_marrow_train_flat/img_002.png",
		"bone_marrow_generated_flat/generated_img_002_0.png", ledger.Implausible)

	report, err := fix.sys.Progress(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Progress() error = %v", err)
	}

	if report.Annotated != tasks.CandidatesPerSet+1 {
		t.Errorf("Annotated = %d, want %d", report.Annotated, tasks.CandidatesPerSet+1)
	}
	if report.FullyAnnotated != 1 {
		t.Errorf("FullyAnnotated = %d, want 1", report.FullyAnnotated)
	}
	if report.ExpectedPerOriginal != tasks.CandidatesPerSet {
		t.Errorf("ExpectedPerOriginal = %d, want %d", report.ExpectedPerOriginal, tasks.CandidatesPerSet)
	}
	if report.Warning != nil {
		t.Errorf("Warning = %+v, want nil", report.Warning)
	}
}

func TestRows(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	record(t, fix.sys, "a/img_001.png", "g/generated_img_001_0.png", ledger.Plausible)
	record(t, fix.sys, "a/img_002.png", "g/generated_img_002_0.png", ledger.Implausible)
	record(t, fix.sys, "a/img_003.png", "g/generated_img_003_0.png", ledger.Plausible)

	t.Run("paged", func(t *testing.T) {
		page, warning, err := fix.sys.Rows(ctx, "bone", pagination.PageRequest{Page: 1, PageSize: 2})
		if err != nil {
			t.Fatalf("Rows() error = %v", err)
		}
		if warning != nil {
			t.Errorf("warning = %+v, want nil", warning)
		}

		if page.Total != 3 || page.TotalPages != 2 {
			t.Errorf("Total = %d TotalPages = %d, want 3 and 2", page.Total, page.TotalPages)
		}
		if len(page.Data) != 2 || page.Data[0].OriginalKey != "a/img_001.png" {
			t.Errorf("Data = %+v, want first two rows in table order", page.Data)
		}
	})

	t.Run("search", func(t *testing.T) {
		search := "img_002"
		page, _, err := fix.sys.Rows(ctx, "bone", pagination.PageRequest{
			Page:     1,
			PageSize: 10,
			Search:   &search,
		})
		if err != nil {
			t.Fatalf("Rows() error = %v", err)
		}

		if page.Total != 1 || page.Data[0].OriginalKey != "a/img_002.png" {
			t.Errorf("search result = %+v, want only img_002", page.Data)
		}
	})
}

func TestLoadMalformedLedger(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	bone, err := fix.registry.Find("bone")
	if err != nil {
		t.Fatalf("Find(bone) error = %v", err)
	}

	key := fix.registry.LedgerKey(*bone)
	if err := fix.store.Upload(ctx, key, strings.NewReader("<html>Service Unavailable</html>"), "text/html"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	table, warning, err := fix.sys.Load(ctx, "bone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if table.Len() != 0 {
		t.Errorf("table.Len() = %d, want 0 for malformed data", table.Len())
	}
	if warning == nil || warning.Op != "decode" {
		t.Errorf("warning = %+v, want decode warning", warning)
	}
}

// failingUploadStore passes reads through to a real store but refuses writes.
type failingUploadStore struct {
	storage.System
}

func (f *failingUploadStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	return errors.New("503 service unavailable")
}

// failingDownloadStore refuses reads with a non-NotFound failure.
type failingDownloadStore struct {
	storage.System
}

func (f *failingDownloadStore) Download(ctx context.Context, key string) (*storage.DownloadResult, error) {
	return nil, errors.New("connection reset")
}

func TestRecordRemoteFailureIsNotFatal(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "project")
	store := &failingUploadStore{System: newStore(t)}
	registry := newTaskRegistry(t, cacheDir)
	sys := annotations.New(store, registry, newPages(t), discard())

	result, err := sys.Record(context.Background(), annotations.RecordCommand{
		TaskID:       "bone",
		OriginalURL:  originalURL,
		GeneratedURL: generatedURL,
		Label:        "Plausible",
	})
	if err != nil {
		t.Fatalf("Record() error = %v, want nil despite remote failure", err)
	}

	if result.Remote.Synced {
		t.Error("Remote.Synced = true, want false")
	}
	if !strings.Contains(result.Remote.Error, "service unavailable") {
		t.Errorf("Remote.Error = %q, want upload failure", result.Remote.Error)
	}

	if !result.Cache.Synced {
		t.Fatalf("Cache.Synced = false (%s), want cache write to succeed independently", result.Cache.Error)
	}
	if _, err := os.Stat(result.Cache.Destination); err != nil {
		t.Errorf("cache file missing: %v", err)
	}
}

func TestRecordCacheFailureIsNotFatal(t *testing.T) {
	// A regular file where the cache directory should be makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "project")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store := newStore(t)
	sys := annotations.New(store, newTaskRegistry(t, blocker), newPages(t), discard())

	result, err := sys.Record(context.Background(), annotations.RecordCommand{
		TaskID:       "bone",
		OriginalURL:  originalURL,
		GeneratedURL: generatedURL,
		Label:        "Plausible",
	})
	if err != nil {
		t.Fatalf("Record() error = %v, want nil despite cache failure", err)
	}

	if result.Cache.Synced {
		t.Error("Cache.Synced = true, want false")
	}
	if result.Cache.Error == "" {
		t.Error("Cache.Error empty, want failure detail")
	}

	if !result.Remote.Synced {
		t.Fatalf("Remote.Synced = false (%s), want remote write to succeed independently", result.Remote.Error)
	}
	if exists, err := store.Exists(context.Background(), result.Remote.Destination); err != nil || !exists {
		t.Errorf("Exists(remote) = %v, %v, want true", exists, err)
	}
}

func TestLoadDownloadFailureWarns(t *testing.T) {
	store := &failingDownloadStore{System: newStore(t)}
	sys := annotations.New(store, newTaskRegistry(t, filepath.Join(t.TempDir(), "project")), newPages(t), discard())

	table, warning, err := sys.Load(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if table.Len() != 0 {
		t.Errorf("table.Len() = %d, want 0", table.Len())
	}
	if warning == nil || warning.Op != "download" {
		t.Errorf("warning = %+v, want download warning", warning)
	}
	if warning != nil && !strings.Contains(warning.Err, "connection reset") {
		t.Errorf("warning.Err = %q, want underlying failure", warning.Err)
	}
}
