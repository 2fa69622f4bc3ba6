package imagesets_test

import (
	"strings"
	"testing"
	"time"

	"verdict/internal/imagesets"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &imagesets.Config{}

	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.SetsDir != "." {
		t.Errorf("SetsDir = %q, want %q", cfg.SetsDir, ".")
	}
	if cfg.SignTTL != "168h" {
		t.Errorf("SignTTL = %q, want %q", cfg.SignTTL, "168h")
	}
	if cfg.TTL() != 7*24*time.Hour {
		t.Errorf("TTL() = %v, want one week", cfg.TTL())
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (auto)", cfg.Workers)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     imagesets.Config
		wantErr string
	}{
		{
			name: "valid overrides",
			cfg:  imagesets.Config{SetsDir: "artifacts", SignTTL: "24h", Workers: 4},
		},
		{
			name:    "unparseable ttl",
			cfg:     imagesets.Config{SignTTL: "one week"},
			wantErr: "sign_ttl",
		},
		{
			name:    "non-positive ttl",
			cfg:     imagesets.Config{SignTTL: "0s"},
			wantErr: "must be positive",
		},
		{
			name:    "negative workers",
			cfg:     imagesets.Config{Workers: -2},
			wantErr: "workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Finalize() error = %v, want nil", err)
				}
				return
			}

			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Finalize() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("VERDICT_TEST_IMAGESETS_SETS_DIR", "/var/lib/verdict/sets")
	t.Setenv("VERDICT_TEST_IMAGESETS_SIGN_TTL", "72h")
	t.Setenv("VERDICT_TEST_IMAGESETS_WORKERS", "6")

	cfg := &imagesets.Config{}
	env := &imagesets.Env{
		SetsDir: "VERDICT_TEST_IMAGESETS_SETS_DIR",
		SignTTL: "VERDICT_TEST_IMAGESETS_SIGN_TTL",
		Workers: "VERDICT_TEST_IMAGESETS_WORKERS",
	}

	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.SetsDir != "/var/lib/verdict/sets" || cfg.SignTTL != "72h" || cfg.Workers != 6 {
		t.Errorf("cfg = %+v, want environment values applied", cfg)
	}
}

func TestConfigMerge(t *testing.T) {
	base := &imagesets.Config{}
	if err := base.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	base.Merge(&imagesets.Config{SignTTL: "48h", Workers: 2})

	if base.SetsDir != "." {
		t.Errorf("SetsDir = %q, want base value preserved", base.SetsDir)
	}
	if base.SignTTL != "48h" || base.Workers != 2 {
		t.Errorf("cfg = %+v, want overlay values applied", base)
	}
}
