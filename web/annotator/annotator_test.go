package annotator_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verdict/web/annotator"
)

func TestModuleServesPage(t *testing.T) {
	m := annotator.NewModule("/annotator")

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/annotator", nil))

	res := rec.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content-type: got %s", ct)
	}

	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), `"/annotator/annotator.js"`) {
		t.Error("page should reference assets under the module base path")
	}
}

func TestModuleServesAssets(t *testing.T) {
	m := annotator.NewModule("/annotator")

	for _, path := range []string{"/annotator/annotator.css", "/annotator/annotator.js"} {
		rec := httptest.NewRecorder()
		m.Serve(rec, httptest.NewRequest("GET", path, nil))

		res := rec.Result()
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d, want 200", path, res.StatusCode)
		}
	}
}
