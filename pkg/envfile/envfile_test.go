package envfile

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/casthouse/stackup/pkg/types"
)

func TestLoadMissingFile(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), ".env.production"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Keys()) != 0 {
		t.Errorf("expected empty profile, got keys %v", p.Keys())
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.development")
	content := "# local stack\nDB_PASSWORD=secret\n\nAPP_DOMAIN=localhost\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := p.Get("DB_PASSWORD"); got != "secret" {
		t.Errorf("DB_PASSWORD = %q, want %q", got, "secret")
	}
	if got := p.Get("APP_DOMAIN"); got != "localhost" {
		t.Errorf("APP_DOMAIN = %q, want %q", got, "localhost")
	}
	if got := len(p.Keys()); got != 2 {
		t.Errorf("expected 2 keys, got %d", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.production")
	p, _ := Load(path)
	p.Set("DB_PASSWORD", "abc")
	p.Set("REDIS_PASSWORD", "def")
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Get("DB_PASSWORD") != "abc" || reloaded.Get("REDIS_PASSWORD") != "def" {
		t.Errorf("round trip lost values: %v", reloaded.Values())
	}
}

func TestEnsureGeneratesProductionCredentials(t *testing.T) {
	dir := t.TempDir()
	req := types.NewRequest(types.EnvProduction, "example.com")

	p, created, err := Ensure(dir, req)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if !created {
		t.Error("expected credentials to be created on first run")
	}

	seen := map[string]bool{}
	for _, key := range []string{KeyDBRootPassword, KeyDBPassword, KeyRedisPassword} {
		value := p.Get(key)
		if value == "" {
			t.Fatalf("%s not generated", key)
		}
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			t.Errorf("%s is not base64: %v", key, err)
		}
		if len(raw) != 32 {
			t.Errorf("%s decodes to %d bytes, want 32", key, len(raw))
		}
		if seen[value] {
			t.Errorf("%s duplicates another credential", key)
		}
		seen[value] = true
	}

	if got := p.Get(KeyAppDomain); got != "example.com" {
		t.Errorf("APP_DOMAIN = %q, want example.com", got)
	}
}

func TestEnsureNeverRotatesCredentials(t *testing.T) {
	dir := t.TempDir()
	req := types.NewRequest(types.EnvProduction, "example.com")

	first, _, err := Ensure(dir, req)
	if err != nil {
		t.Fatal(err)
	}

	// Second run with a different domain: credentials must survive, the
	// domain must be refreshed.
	second, created, err := Ensure(dir, types.NewRequest(types.EnvProduction, "other.example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("expected created=false on redeploy")
	}
	for _, key := range []string{KeyDBRootPassword, KeyDBPassword, KeyRedisPassword} {
		if first.Get(key) != second.Get(key) {
			t.Errorf("%s rotated across runs", key)
		}
	}
	if got := second.Get(KeyAppDomain); got != "other.example.com" {
		t.Errorf("APP_DOMAIN = %q, want other.example.com", got)
	}
}

func TestEnsureDevelopmentDefaults(t *testing.T) {
	dir := t.TempDir()
	p, created, err := Ensure(dir, types.NewRequest(types.EnvDevelopment, ""))
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("expected defaults to be written for a fresh development profile")
	}
	if p.Get(KeyDBPassword) != "secret" {
		t.Errorf("DB_PASSWORD = %q, want development default", p.Get(KeyDBPassword))
	}
	if p.Get(KeyAppEnv) != "development" {
		t.Errorf("APP_ENV = %q, want development", p.Get(KeyAppEnv))
	}
}
