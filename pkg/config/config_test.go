// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
api:
  port: 9000
  host: "127.0.0.1"
recency:
  capacity: 5
storage:
  cache:
    type: "redis"
    addr: "localhost:6379"
log:
  level: "debug"
`
	path := filepath.Join(dir, "test.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host: got %q", cfg.API.Host)
	}
	if cfg.Recency.Capacity != 5 {
		t.Errorf("Recency.Capacity: got %d", cfg.Recency.Capacity)
	}
	if cfg.Storage.Cache.Type != "redis" || cfg.Storage.Cache.Addr != "localhost:6379" {
		t.Errorf("Storage.Cache: got %+v", cfg.Storage.Cache)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q", cfg.Log.Level)
	}
}

func TestLoadConfig_KeepsDefaultsForMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	def := Default()
	if cfg.Recency.Capacity != def.Recency.Capacity {
		t.Errorf("Recency.Capacity: got %d, want %d", cfg.Recency.Capacity, def.Recency.Capacity)
	}
	if cfg.Upstream.Profile.URL != def.Upstream.Profile.URL {
		t.Errorf("Upstream.Profile.URL: got %q", cfg.Upstream.Profile.URL)
	}
	if cfg.Upstream.Relation.Fields["follower"] != "data.follower" {
		t.Errorf("Upstream.Relation.Fields: got %v", cfg.Upstream.Relation.Fields)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfig_ExpandsVaultToken(t *testing.T) {
	t.Setenv("PC_TEST_VAULT_TOKEN", "s.abc")
	path := filepath.Join(t.TempDir(), "vault.yaml")
	yaml := `
secrets:
  provider: vault
  vault:
    address: "http://127.0.0.1:8200"
    token: "${PC_TEST_VAULT_TOKEN}"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Secrets.Vault.Token != "s.abc" {
		t.Errorf("Vault.Token: got %q", cfg.Secrets.Vault.Token)
	}
}

func TestLoadAPIConfig_FallsBackToDefault(t *testing.T) {
	t.Setenv("PROFILE_CARD_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := LoadAPIConfig()
	if err != nil {
		t.Fatalf("LoadAPIConfig: %v", err)
	}
	if cfg.API.Port != 12561 {
		t.Errorf("API.Port: got %d", cfg.API.Port)
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("", time.Second); got != time.Second {
		t.Errorf("empty: got %v", got)
	}
	if got := ParseDuration("bogus", time.Second); got != time.Second {
		t.Errorf("invalid: got %v", got)
	}
	if got := ParseDuration("250ms", time.Second); got != 250*time.Millisecond {
		t.Errorf("valid: got %v", got)
	}
}
