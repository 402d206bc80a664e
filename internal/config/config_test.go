package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gokernel/schedcore/internal/kernel"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != kernel.DefaultConfig() {
		t.Fatalf("Load of a missing file returned %+v, want defaults", cfg)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != kernel.DefaultConfig() {
		t.Fatalf("Load(\"\") returned %+v, want defaults", cfg)
	}
}

func TestLoadOverlaysOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.toml")
	body := `
max_ticket = 20000
quanta = [1, 2, 3]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MAXTICKET != 20000 {
		t.Fatalf("MAXTICKET = %d, want 20000", cfg.MAXTICKET)
	}
	if cfg.Quanta != ([kernel.K]int64{1, 2, 3}) {
		t.Fatalf("Quanta = %v, want [1 2 3]", cfg.Quanta)
	}
	// MAXSTRIDE was left unset in the fixture: the compiled-in default
	// survives untouched.
	if cfg.MAXSTRIDE != kernel.DefaultConfig().MAXSTRIDE {
		t.Fatalf("MAXSTRIDE = %d, want default %d", cfg.MAXSTRIDE, kernel.DefaultConfig().MAXSTRIDE)
	}
}

func TestApplyPatchUpdatesQuantaOnly(t *testing.T) {
	cfg := kernel.DefaultConfig()
	patch := []byte(`[{"op": "replace", "path": "/quanta", "value": [7, 14, 28]}]`)

	patched, err := ApplyPatch(cfg, patch, nil)
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if patched.Quanta != ([kernel.K]int64{7, 14, 28}) {
		t.Fatalf("Quanta after patch = %v, want [7 14 28]", patched.Quanta)
	}
	if patched.Expire != cfg.Expire {
		t.Fatalf("Expire changed by a patch that did not touch it: got %v, want %v", patched.Expire, cfg.Expire)
	}
	// The original config passed in must not be mutated in place.
	if cfg.Quanta == patched.Quanta {
		t.Fatalf("ApplyPatch mutated its input config's Quanta in place")
	}
}

func TestApplyPatchRejectsMalformedDocument(t *testing.T) {
	cfg := kernel.DefaultConfig()
	if _, err := ApplyPatch(cfg, []byte("not json"), nil); err == nil {
		t.Fatalf("ApplyPatch with malformed JSON: want error, got nil")
	}
}
