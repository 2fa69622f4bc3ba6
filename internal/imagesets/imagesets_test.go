package imagesets_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"verdict/internal/annotations"
	"verdict/internal/imagesets"
	"verdict/internal/tasks"
	"verdict/pkg/pagination"
	"verdict/pkg/storage"
)

const publicEndpoint = "https://images.example.com"

type fixture struct {
	sys      imagesets.System
	ledgers  annotations.System
	store    storage.System
	registry tasks.System
	cfg      *imagesets.Config
	pages    *pagination.Config
	setsDir  string
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, endpoint string) *fixture {
	t.Helper()

	storeCfg := &storage.Config{
		Provider:       storage.ProviderLocal,
		Root:           t.TempDir(),
		PublicEndpoint: endpoint,
	}
	store, err := storage.New(storeCfg, discard())
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	taskCfg := &tasks.Config{LocalDir: filepath.Join(t.TempDir(), "project")}
	if err := taskCfg.Finalize(nil); err != nil {
		t.Fatalf("tasks config Finalize() error = %v", err)
	}
	registry := tasks.New(taskCfg, discard())

	pages := &pagination.Config{}
	if err := pages.Finalize(nil); err != nil {
		t.Fatalf("pagination config Finalize() error = %v", err)
	}

	ledgers := annotations.New(store, registry, pages, discard())

	setsDir := t.TempDir()
	setsCfg := &imagesets.Config{SetsDir: setsDir}
	if err := setsCfg.Finalize(nil); err != nil {
		t.Fatalf("imagesets config Finalize() error = %v", err)
	}

	return &fixture{
		sys:      imagesets.New(setsCfg, store, registry, ledgers, pages, discard()),
		ledgers:  ledgers,
		store:    store,
		registry: registry,
		cfg:      setsCfg,
		pages:    pages,
		setsDir:  setsDir,
	}
}

// sampleSet builds a valid image set for an original stem, using signed-URL
// shaped entries so key extraction is exercised.
func sampleSet(stem string) imagesets.ImageSet {
	set := imagesets.ImageSet{
		Original: fmt.Sprintf("%s/bone_marrow_train_flat/%s.png?sig=orig", publicEndpoint, stem),
	}
	for i := range tasks.CandidatesPerSet {
		set.Generated = append(set.Generated,
			fmt.Sprintf("%s/bone_marrow_generated_flat/generated_%s_%d.png?sig=g%d", publicEndpoint, stem, i, i))
	}
	return set
}

func writeSetsFile(t *testing.T, f *fixture, taskID string, sets []imagesets.ImageSet) {
	t.Helper()

	task, err := f.registry.Find(taskID)
	if err != nil {
		t.Fatalf("Find(%s) error = %v", taskID, err)
	}

	data, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		t.Fatalf("marshal sets: %v", err)
	}

	if err := os.WriteFile(filepath.Join(f.setsDir, task.SetsFile), data, 0o644); err != nil {
		t.Fatalf("write sets file: %v", err)
	}
}

func TestImageSetValidate(t *testing.T) {
	valid := sampleSet("img_001")

	tests := []struct {
		name    string
		mutate  func(*imagesets.ImageSet)
		wantErr bool
	}{
		{
			name:   "valid set",
			mutate: func(*imagesets.ImageSet) {},
		},
		{
			name:    "empty original",
			mutate:  func(s *imagesets.ImageSet) { s.Original = "" },
			wantErr: true,
		},
		{
			name:    "too few candidates",
			mutate:  func(s *imagesets.ImageSet) { s.Generated = s.Generated[:4] },
			wantErr: true,
		},
		{
			name:    "too many candidates",
			mutate:  func(s *imagesets.ImageSet) { s.Generated = append(s.Generated, "extra.png") },
			wantErr: true,
		},
		{
			name:    "empty candidate",
			mutate:  func(s *imagesets.ImageSet) { s.Generated[2] = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := valid
			set.Generated = append([]string(nil), valid.Generated...)
			tt.mutate(&set)

			err := set.Validate()
			if tt.wantErr && !errors.Is(err, imagesets.ErrInvalidSet) {
				t.Errorf("Validate() error = %v, want ErrInvalidSet", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestImageSetOriginalKey(t *testing.T) {
	set := sampleSet("img_001")

	if got := set.OriginalKey(); got != "bone_marrow_train_flat/img_001.png" {
		t.Errorf("OriginalKey() = %q, want stable key", got)
	}

	bare := imagesets.ImageSet{Original: "bone_marrow_train_flat/img_001.png"}
	if got := bare.OriginalKey(); got != "bone_marrow_train_flat/img_001.png" {
		t.Errorf("OriginalKey() = %q, want bare key unchanged", got)
	}
}
