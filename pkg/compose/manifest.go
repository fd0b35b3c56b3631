package compose

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest is the subset of a compose document the orchestrator reads. The
// service set definition is externally authored; stackup only inspects it,
// never rewrites it.
type Manifest struct {
	Services map[string]ServiceSpec `yaml:"services"`
	Volumes  map[string]yaml.Node   `yaml:"volumes"`
}

// ServiceSpec describes one declared service.
type ServiceSpec struct {
	Image       string       `yaml:"image"`
	Build       BuildSpec    `yaml:"build"`
	DependsOn   DependsOn    `yaml:"depends_on"`
	Ports       []string     `yaml:"ports"`
	Healthcheck *Healthcheck `yaml:"healthcheck"`
}

// BuildSpec accepts both the scalar shorthand (build: ./dir) and the mapping
// form.
type BuildSpec struct {
	Context    string `yaml:"context"`
	Dockerfile string `yaml:"dockerfile"`
}

func (b *BuildSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		b.Context = node.Value
		return nil
	}
	type raw BuildSpec
	return node.Decode((*raw)(b))
}

// DependsOn maps dependency service name to its start condition. The list
// shorthand decodes with empty conditions.
type DependsOn map[string]string

func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	out := make(DependsOn)

	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		for _, name := range names {
			out[name] = ""
		}
	case yaml.MappingNode:
		var m map[string]struct {
			Condition string `yaml:"condition"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		for name, spec := range m {
			out[name] = spec.Condition
		}
	default:
		return fmt.Errorf("depends_on must be a list or a mapping")
	}

	*d = out
	return nil
}

// Services returns the dependency names sorted.
func (d DependsOn) Services() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Healthcheck mirrors the compose healthcheck declaration. Durations are
// compose-style strings ("2s", "1m30s").
type Healthcheck struct {
	Test        TestCommand `yaml:"test"`
	Interval    string      `yaml:"interval"`
	Timeout     string      `yaml:"timeout"`
	Retries     int         `yaml:"retries"`
	StartPeriod string      `yaml:"start_period"`
}

// Policy parses the declared probe parameters, applying compose defaults for
// anything unset.
func (h *Healthcheck) Policy() (interval, timeout time.Duration, retries int, err error) {
	interval, err = parseDuration(h.Interval, 30*time.Second)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid healthcheck interval %q: %w", h.Interval, err)
	}
	timeout, err = parseDuration(h.Timeout, 30*time.Second)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid healthcheck timeout %q: %w", h.Timeout, err)
	}
	retries = h.Retries
	if retries == 0 {
		retries = 3
	}
	return interval, timeout, retries, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

// TestCommand accepts the scalar shell form and the CMD list form.
type TestCommand []string

func (t *TestCommand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = TestCommand{"CMD-SHELL", node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*t = TestCommand(list)
	return nil
}

// LoadManifest reads and parses the compose document for a profile.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", path, err)
	}
	if len(m.Services) == 0 {
		return nil, fmt.Errorf("compose file %s declares no services", path)
	}
	return &m, nil
}

// ServiceNames returns the declared service names sorted.
func (m *Manifest) ServiceNames() []string {
	names := make([]string, 0, len(m.Services))
	for name := range m.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HostPort returns the host side of the first published port for a service,
// or "" when the service publishes nothing. Used by advisory connectivity
// checks that only make sense when a port is reachable from the host.
func (m *Manifest) HostPort(service string) string {
	spec, ok := m.Services[service]
	if !ok {
		return ""
	}
	for _, p := range spec.Ports {
		if host, _, found := cutLast(p, ":"); found {
			// Strip a bind address if present ("127.0.0.1:3306:3306").
			if _, hp, found2 := cutLast(host, ":"); found2 {
				return hp
			}
			return host
		}
	}
	return ""
}

func cutLast(s, sep string) (before, after string, found bool) {
	for i := len(s) - len(sep); i >= 0; i-- {
		if s[i:i+len(sep)] == sep {
			return s[:i], s[i+len(sep):], true
		}
	}
	return s, "", false
}
