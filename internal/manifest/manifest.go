// Package manifest loads and validates genesis manifests: the YAML
// documents describing how a fresh token instance is initialized.
//
// A manifest passes two gates before use: YAML decoding into the typed
// structure, then unification with the embedded CUE schema, which carries
// the constraints YAML cannot express (symbol shape, decimal bounds, the
// closed role set).
package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/storage"
	"github.com/roach88/keel/internal/val"
)

//go:embed schema.cue
var schemaCUE string

// Manifest is the genesis description of one token instance.
type Manifest struct {
	Token  TokenMeta `yaml:"token" json:"token"`
	Admin  string    `yaml:"admin" json:"admin"`
	Grants []Grant   `yaml:"grants" json:"grants"`
	Limits *Limits   `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// TokenMeta is the immutable token descriptor.
type TokenMeta struct {
	Name     string `yaml:"name" json:"name"`
	Symbol   string `yaml:"symbol" json:"symbol"`
	Decimals int64  `yaml:"decimals" json:"decimals"`
}

// Grant binds one operational role to a principal at genesis.
type Grant struct {
	Subject string `yaml:"subject" json:"subject"`
	Role    string `yaml:"role" json:"role"`
}

// Limits overrides engine defaults.
type Limits struct {
	MaxEntries int `yaml:"max_entries,omitempty" json:"max_entries,omitempty"`
	MaxSteps   int `yaml:"max_steps,omitempty" json:"max_steps,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate unifies the manifest with the embedded CUE schema. Callers
// that decode a Manifest themselves (the scenario harness embeds one in
// its YAML) run it through the same gate.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))
	if !def.Exists() {
		return fmt.Errorf("manifest schema: #Manifest not found")
	}

	value := ctx.Encode(m)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	return nil
}

// StorageOptions returns storage engine options derived from the limits.
func (m *Manifest) StorageOptions() []storage.Option {
	if m.Limits == nil || m.Limits.MaxEntries == 0 {
		return nil
	}
	return []storage.Option{storage.WithMaxEntries(m.Limits.MaxEntries)}
}

// DispatcherOptions returns dispatcher options derived from the limits.
func (m *Manifest) DispatcherOptions() []contract.Option {
	if m.Limits == nil || m.Limits.MaxSteps == 0 {
		return nil
	}
	return []contract.Option{contract.WithMaxSteps(m.Limits.MaxSteps)}
}

// Apply initializes a fresh instance through the dispatcher: one
// token.initialize invocation followed by one token.grant_role per grant,
// all invoked as the admin. Every step lands in the journal like any
// other invocation, so a replayed instance needs no manifest.
func (m *Manifest) Apply(disp *contract.Dispatcher) error {
	admin := val.Addr(m.Admin)

	if _, err := disp.Invoke(admin, "token.initialize", val.Map{
		"admin":    val.Str(m.Admin),
		"name":     val.Str(m.Token.Name),
		"symbol":   val.Str(m.Token.Symbol),
		"decimals": val.I64(m.Token.Decimals),
	}); err != nil {
		return fmt.Errorf("apply manifest: initialize: %w", err)
	}

	for _, g := range m.Grants {
		if _, err := disp.Invoke(admin, "token.grant_role", val.Map{
			"subject": val.Str(g.Subject),
			"role":    val.Str(g.Role),
		}); err != nil {
			return fmt.Errorf("apply manifest: grant %s to %s: %w", g.Role, g.Subject, err)
		}
	}
	return nil
}
