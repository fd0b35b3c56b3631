package envfile

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/casthouse/stackup/pkg/types"
)

// Credential keys generated for a new production profile. Values are written
// once and reused by every subsequent run (secrets must stay stable across
// redeploys).
const (
	KeyDBRootPassword = "DB_ROOT_PASSWORD"
	KeyDBPassword     = "DB_PASSWORD"
	KeyRedisPassword  = "REDIS_PASSWORD"

	KeyAppEnv    = "APP_ENV"
	KeyAppDomain = "APP_DOMAIN"
	KeyDBUser    = "DB_USERNAME"
	KeyDBName    = "DB_DATABASE"
)

var credentialKeys = []string{KeyDBRootPassword, KeyDBPassword, KeyRedisPassword}

// Profile is a key=value environment file bound to a path on disk.
type Profile struct {
	path   string
	order  []string
	values map[string]string
}

// Load reads an environment file. A missing file yields an empty profile
// bound to the same path, ready to be populated and saved.
func Load(path string) (*Profile, error) {
	p := &Profile{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := p.values[key]; !exists {
			p.order = append(p.order, key)
		}
		p.values[key] = strings.TrimSpace(value)
	}

	return p, nil
}

// Path returns the file path the profile is bound to.
func (p *Profile) Path() string {
	return p.path
}

// Get returns the value for key, or "" if unset.
func (p *Profile) Get(key string) string {
	return p.values[key]
}

// Set stores a value, preserving first-seen key order for stable files.
func (p *Profile) Set(key, value string) {
	if _, exists := p.values[key]; !exists {
		p.order = append(p.order, key)
	}
	p.values[key] = value
}

// Keys returns the keys in file order.
func (p *Profile) Keys() []string {
	keys := make([]string, len(p.order))
	copy(keys, p.order)
	return keys
}

// Save writes the profile to its path with 0600 permissions. The write goes
// through a temp file and rename so a crash cannot truncate the credential
// file.
func (p *Profile) Save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	var b strings.Builder
	for _, key := range p.order {
		fmt.Fprintf(&b, "%s=%s\n", key, p.values[key])
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", p.path, err)
	}
	return nil
}

// ProfilePath returns the conventional env file path for an environment.
func ProfilePath(dir string, env types.Environment) string {
	return filepath.Join(dir, ".env."+string(env))
}

// Ensure materializes the environment profile for a run. For a new production
// profile it generates credentials from a cryptographically strong source;
// for a new development profile it writes fixed local-only defaults. An
// existing file is never regenerated: only the non-secret domain and
// environment keys are refreshed. The returned bool reports whether
// credentials were created on this run.
func Ensure(dir string, req *types.DeploymentRequest) (*Profile, bool, error) {
	path := ProfilePath(dir, req.Environment)

	p, err := Load(path)
	if err != nil {
		return nil, false, err
	}

	created := false
	if !p.hasCredentials() {
		if req.Environment == types.EnvProduction {
			if err := p.generateCredentials(); err != nil {
				return nil, false, err
			}
		} else {
			p.setDevelopmentDefaults()
		}
		created = true
	}

	if p.Get(KeyDBUser) == "" {
		p.Set(KeyDBUser, "app")
	}
	if p.Get(KeyDBName) == "" {
		p.Set(KeyDBName, "app")
	}
	p.Set(KeyAppEnv, string(req.Environment))
	p.Set(KeyAppDomain, req.Domain)

	if err := p.Save(); err != nil {
		return nil, false, err
	}
	return p, created, nil
}

func (p *Profile) hasCredentials() bool {
	for _, key := range credentialKeys {
		if p.Get(key) == "" {
			return false
		}
	}
	return true
}

func (p *Profile) generateCredentials() error {
	for _, key := range credentialKeys {
		if p.Get(key) != "" {
			continue
		}
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		p.Set(key, secret)
	}
	return nil
}

// setDevelopmentDefaults writes well-known local credentials. Development
// stacks bind to localhost only; predictable values make debugging against
// the database trivial.
func (p *Profile) setDevelopmentDefaults() {
	p.Set(KeyDBRootPassword, "root")
	p.Set(KeyDBPassword, "secret")
	p.Set(KeyRedisPassword, "secret")
}

// randomSecret returns 32 random bytes, base64-encoded.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random source: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Values returns a sorted KEY=VALUE snapshot, useful for diagnostics and
// passing to subprocess environments.
func (p *Profile) Values() []string {
	out := make([]string, 0, len(p.values))
	for key, value := range p.values {
		out = append(out, key+"="+value)
	}
	sort.Strings(out)
	return out
}
