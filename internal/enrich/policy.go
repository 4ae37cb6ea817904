package enrich

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Duration decodes "25s"-style YAML scalars, which yaml.v3 does not do for
// time.Duration on its own.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return eris.Wrapf(err, "enrich: invalid duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

// Policy tunes one deployment's enrichment behavior. Everything has a
// working default; the YAML file only overrides.
type Policy struct {
	// ProviderTimeout bounds each provider call inside the fan-out.
	ProviderTimeout Duration `yaml:"provider_timeout"`

	// ContextBudget caps the aggregated context fed to synthesis, in
	// characters. 0 selects the engine default.
	ContextBudget int `yaml:"context_budget"`

	// ChargeOnParseFailure controls whether an unparseable model response
	// still settles a credit. The model did run and answer, so the default
	// is to charge.
	ChargeOnParseFailure *bool `yaml:"charge_on_parse_failure"`

	// SubPaths overrides the speculative site pages fetched next to the
	// home page. Empty keeps the provider default.
	SubPaths []string `yaml:"sub_paths"`

	// Placeholders adds deployment-specific placeholder tokens to the
	// sanitizer's built-in list.
	Placeholders []string `yaml:"placeholders"`
}

// DefaultPolicy returns the policy used when no file is given.
func DefaultPolicy() *Policy {
	return &Policy{ProviderTimeout: Duration(25 * time.Second)}
}

// ChargeOnParse resolves the tri-state flag; unset means true.
func (p *Policy) ChargeOnParse() bool {
	return p.ChargeOnParseFailure == nil || *p.ChargeOnParseFailure
}

// LoadPolicy reads a policy from a YAML file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read policy %s", path)
	}

	// The YAML has a top-level "enrichment" key
	var wrapper struct {
		Enrichment Policy `yaml:"enrichment"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "enrich: parse policy %s", path)
	}

	p := &wrapper.Enrichment
	if p.ProviderTimeout <= 0 {
		p.ProviderTimeout = DefaultPolicy().ProviderTimeout
	}
	return p, nil
}
