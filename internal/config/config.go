// Package config loads and live-patches the scheduler's tunables
// (SPEC_FULL.md §A.2). File format is TOML, matching the teacher pack's
// config library (BurntSushi/toml). A running kerneld can accept a JSON
// Patch document (github.com/evanphx/json-patch, RFC 6902) to adjust the
// per-level quanta/expire budgets without a restart; the resulting diff is
// computed with github.com/mattbaird/jsonpatch for the audit log line, so
// an operator reading kerneld's log can see exactly what changed.
package config

import (
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	jsonpatch "github.com/evanphx/json-patch"
	jsonpatchdiff "github.com/mattbaird/jsonpatch"
	"github.com/sirupsen/logrus"

	"github.com/gokernel/schedcore/internal/kernel"
)

// File is the on-disk shape of a kerneld config file. Any field left at
// its zero value keeps the compiled-in default from kernel.DefaultConfig.
type File struct {
	NPROC     int     `toml:"nproc" json:"nproc"`
	NTHREAD   int     `toml:"nthread" json:"nthread"`
	MAXTICKET int64   `toml:"max_ticket" json:"max_ticket"`
	MAXSTRIDE int64   `toml:"max_stride" json:"max_stride"`
	SCALEPASS int64   `toml:"scale_pass" json:"scale_pass"`
	Quanta    []int64 `toml:"quanta" json:"quanta"`
	Expire    []int64 `toml:"expire" json:"expire"`
}

// Load reads path (if it exists) and overlays it onto kernel.DefaultConfig.
// A missing file is not an error: kerneld boots with defaults.
func Load(path string) (kernel.Config, error) {
	cfg := kernel.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return cfg, err
	}
	applyFile(&cfg, f)
	return cfg, nil
}

func applyFile(cfg *kernel.Config, f File) {
	if f.NPROC != 0 {
		cfg.NPROC = f.NPROC
	}
	if f.NTHREAD != 0 {
		cfg.NTHREAD = f.NTHREAD
	}
	if f.MAXTICKET != 0 {
		cfg.MAXTICKET = f.MAXTICKET
	}
	if f.MAXSTRIDE != 0 {
		cfg.MAXSTRIDE = f.MAXSTRIDE
	}
	if f.SCALEPASS != 0 {
		cfg.SCALEPASS = f.SCALEPASS
	}
	for i := 0; i < kernel.K && i < len(f.Quanta); i++ {
		cfg.Quanta[i] = f.Quanta[i]
	}
	for i := 0; i < kernel.K && i < len(f.Expire); i++ {
		cfg.Expire[i] = f.Expire[i]
	}
}

// ApplyPatch applies an RFC 6902 JSON Patch document against the current
// config's JSON representation, returning the patched config. Only the
// per-level Quanta/Expire arrays are taken from the patched document;
// changes to NPROC/NTHREAD/MAXTICKET/MAXSTRIDE/SCALEPASS are dropped, and
// only Load reads those fields.
func ApplyPatch(cfg kernel.Config, patchJSON []byte, log *logrus.Entry) (kernel.Config, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	before, err := json.Marshal(toFile(cfg))
	if err != nil {
		return cfg, err
	}

	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return cfg, err
	}
	after, err := patch.Apply(before)
	if err != nil {
		return cfg, err
	}

	if diff, err := jsonpatchdiff.CreatePatch(before, after); err == nil {
		if b, err := json.Marshal(diff); err == nil {
			log.WithField("diff", string(b)).Info("scheduler config patched")
		}
	}

	var f File
	if err := json.Unmarshal(after, &f); err != nil {
		return cfg, err
	}
	patched := cfg
	for i := 0; i < kernel.K && i < len(f.Quanta); i++ {
		patched.Quanta[i] = f.Quanta[i]
	}
	for i := 0; i < kernel.K && i < len(f.Expire); i++ {
		patched.Expire[i] = f.Expire[i]
	}
	return patched, nil
}

func toFile(cfg kernel.Config) File {
	return File{
		NPROC:     cfg.NPROC,
		NTHREAD:   cfg.NTHREAD,
		MAXTICKET: cfg.MAXTICKET,
		MAXSTRIDE: cfg.MAXSTRIDE,
		SCALEPASS: cfg.SCALEPASS,
		Quanta:    cfg.Quanta[:],
		Expire:    cfg.Expire[:],
	}
}
