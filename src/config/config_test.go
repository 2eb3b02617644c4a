package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("name: desk\nport: 9000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "desk" || cfg.Port != 9000 {
		t.Errorf("file values not applied: %+v", cfg.MConfig)
	}
	if cfg.Storage.DBType != "sqlite" || cfg.Session.Backend != "memory" || cfg.DataSource.Simulator.HistoryLength != 100 {
		t.Errorf("defaults not applied: %+v", cfg.MConfig)
	}
	if !cfg.Balance().Equal(decimal.NewFromInt(100000)) {
		t.Errorf("default balance = %s", cfg.Balance())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PT_OAUTH_CLIENT_SECRET", "from-env")
	t.Setenv("PT_PORT", "8181")

	cfg, err := Parse([]byte("oauth:\n  client_secret: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OAuth.ClientSecret != "from-env" || cfg.Port != 8181 {
		t.Errorf("env overrides not applied: %+v", cfg.MConfig)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"port":       "port: 80\n",
		"balance":    "default_balance: \"-5\"\n",
		"db type":    "storage:\n  db_type: mongo\n",
		"postgres":   "storage:\n  db_type: postgres\n",
		"redis":      "session:\n  backend: redis\n",
		"volatility": "data_source:\n  simulator:\n    volatility: 2\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: invalid config accepted", name)
		}
	}
	if _, err := Parse([]byte("port: [")); err == nil || !strings.Contains(err.Error(), "YAML") {
		t.Errorf("malformed yaml: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{MConfig: Defaults()}
	cfg.Name = "round-trip"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "round-trip" || len(loaded.Timeframes) != 9 {
		t.Errorf("unexpected config %+v", loaded.MConfig)
	}

	if _, err := NewConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}
