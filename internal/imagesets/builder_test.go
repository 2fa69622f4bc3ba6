package imagesets_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"verdict/internal/imagesets"
	"verdict/internal/tasks"
	"verdict/pkg/storage"
)

func seedImages(t *testing.T, f *fixture, keys ...string) {
	t.Helper()

	for _, key := range keys {
		if err := f.store.Upload(context.Background(), key, strings.NewReader("png"), "image/png"); err != nil {
			t.Fatalf("Upload(%s) error = %v", key, err)
		}
	}
}

// seedTaskImages uploads originals plus however many candidates each should
// have: map of stem to candidate count.
func seedTaskImages(t *testing.T, f *fixture, stems map[string]int) {
	t.Helper()

	for stem, candidates := range stems {
		seedImages(t, f, "bone_marrow_train_flat/"+stem+".png")
		for i := 0; i < candidates; i++ {
			seedImages(t, f, fmt.Sprintf("bone_marrow_generated_flat/generated_%s_%d.png", stem, i))
		}
	}
}

func TestBuild(t *testing.T) {
	fix := newFixture(t, publicEndpoint)
	seedTaskImages(t, fix, map[string]int{
		"img_001": tasks.CandidatesPerSet,
		"img_002": tasks.CandidatesPerSet - 1,
		"img_003": tasks.CandidatesPerSet,
	})

	report, err := fix.sys.Build(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if report.Originals != 3 || report.Sets != 2 || report.Incomplete != 1 || report.SignFailures != 0 {
		t.Errorf("report = %+v, want 3 originals, 2 sets, 1 incomplete", report)
	}
	if report.ScannedBytes != int64(3*len("png")) {
		t.Errorf("ScannedBytes = %d, want the originals' total size", report.ScannedBytes)
	}

	data, err := os.ReadFile(report.File)
	if err != nil {
		t.Fatalf("read sets file: %v", err)
	}

	var sets []imagesets.ImageSet
	if err := json.Unmarshal(data, &sets); err != nil {
		t.Fatalf("parse sets file: %v", err)
	}

	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2", len(sets))
	}

	for i, set := range sets {
		if err := set.Validate(); err != nil {
			t.Errorf("sets[%d].Validate() error = %v", i, err)
		}
	}

	// Listing order survives the parallel build.
	if sets[0].OriginalKey() != "bone_marrow_train_flat/img_001.png" ||
		sets[1].OriginalKey() != "bone_marrow_train_flat/img_003.png" {
		t.Errorf("set order = [%q, %q], want img_001 then img_003",
			sets[0].OriginalKey(), sets[1].OriginalKey())
	}

	wantOriginal := publicEndpoint + "/bone_marrow_train_flat/img_001.png"
	if sets[0].Original != wantOriginal {
		t.Errorf("sets[0].Original = %q, want %q", sets[0].Original, wantOriginal)
	}

	for i, url := range sets[0].Generated {
		want := fmt.Sprintf("%s/bone_marrow_generated_flat/generated_img_001_%d.png", publicEndpoint, i)
		if url != want {
			t.Errorf("sets[0].Generated[%d] = %q, want %q", i, url, want)
		}
	}
}

func TestBuildThenList(t *testing.T) {
	fix := newFixture(t, publicEndpoint)
	seedTaskImages(t, fix, map[string]int{
		"img_001": tasks.CandidatesPerSet,
		"img_002": tasks.CandidatesPerSet,
	})

	if _, err := fix.sys.Build(context.Background(), "bone"); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	page, _, err := fix.sys.List(context.Background(), listQuery("bone", true))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Total = %d, want both freshly built sets pending", page.Total)
	}
}

func TestBuildSigningUnavailable(t *testing.T) {
	fix := newFixture(t, "")
	seedTaskImages(t, fix, map[string]int{
		"img_001": tasks.CandidatesPerSet,
		"img_002": tasks.CandidatesPerSet - 1,
		"img_003": tasks.CandidatesPerSet,
	})

	report, err := fix.sys.Build(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if report.Sets != 0 || report.SignFailures != 2 || report.Incomplete != 1 {
		t.Errorf("report = %+v, want 0 sets, 2 sign failures, 1 incomplete", report)
	}

	data, err := os.ReadFile(report.File)
	if err != nil {
		t.Fatalf("read sets file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("sets file = %q, want an empty array", data)
	}
}

// tinyPageStore forces single-object listing pages to exercise the marker
// loop.
type tinyPageStore struct {
	storage.System
}

func (s *tinyPageStore) List(ctx context.Context, prefix, marker string, maxResults int32) (*storage.ListResult, error) {
	return s.System.List(ctx, prefix, marker, 1)
}

func TestBuildPagedListing(t *testing.T) {
	fix := newFixture(t, publicEndpoint)
	seedTaskImages(t, fix, map[string]int{
		"img_001": tasks.CandidatesPerSet,
		"img_002": tasks.CandidatesPerSet,
		"img_003": tasks.CandidatesPerSet,
	})

	sys := imagesets.New(fix.cfg, &tinyPageStore{System: fix.store}, fix.registry, fix.ledgers, fix.pages, discard())

	report, err := sys.Build(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if report.Originals != 3 || report.Sets != 3 {
		t.Errorf("report = %+v, want all 3 originals found across pages", report)
	}
}

// failingProbeStore fails candidate probes with an infrastructure error.
type failingProbeStore struct {
	storage.System
}

func (s *failingProbeStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestBuildProbeFailureAborts(t *testing.T) {
	fix := newFixture(t, publicEndpoint)
	seedTaskImages(t, fix, map[string]int{"img_001": tasks.CandidatesPerSet})

	sys := imagesets.New(fix.cfg, &failingProbeStore{System: fix.store}, fix.registry, fix.ledgers, fix.pages, discard())

	if _, err := sys.Build(context.Background(), "bone"); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("Build() error = %v, want probe failure surfaced", err)
	}
}

func TestBuildUnknownTask(t *testing.T) {
	fix := newFixture(t, publicEndpoint)

	if _, err := fix.sys.Build(context.Background(), "retina"); !errors.Is(err, tasks.ErrNotFound) {
		t.Errorf("Build() error = %v, want ErrNotFound", err)
	}
}

func TestBuildEmptyPrefix(t *testing.T) {
	fix := newFixture(t, publicEndpoint)

	report, err := fix.sys.Build(context.Background(), "bone")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report.Originals != 0 || report.Sets != 0 {
		t.Errorf("report = %+v, want empty build", report)
	}
}
