package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeRunYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("got %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	p := writeRunYAML(t, `
tick_rate_hz: 0
max_ticks: 100
script_cache_size: 8
index_db:
  path: " runs.db "
  every_ticks: 0
`)
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TickRateHz != 0 || got.MaxTicks != 100 || got.ScriptCacheSize != 8 {
		t.Fatalf("got %+v", got)
	}
	if got.StepTimeout() != 50*time.Millisecond || !got.TickLog.Enabled {
		t.Fatalf("defaults lost: %+v", got)
	}
	if got.IndexDB.Path != "runs.db" || got.IndexDB.EveryTicks != 1 || !got.IndexDB.Enabled {
		t.Fatalf("index_db=%+v", got.IndexDB)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := []struct{ body, want string }{
		{"tick_rate_hz: -1", "tick_rate_hz"},
		{"script_cache_size: 0", "script_cache_size"},
		{`tick_log: {enabled: true, dir: ""}`, "tick_log.dir"},
		{`index_db: {enabled: true, path: " "}`, "index_db.path"},
	}
	for _, tc := range cases {
		_, err := Load(writeRunYAML(t, tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%q: err=%v", tc.body, err)
		}
	}
}
