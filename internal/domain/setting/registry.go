package setting

import (
	"fmt"
	"strings"
)

// Registry declares the known settings together with their cascade and guard rules
type Registry struct {
	defs     map[string]Definition
	order    []string
	cascades []CascadeRule
	guards   []GuardRule
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a definition. The default value must be valid for the declared type.
func (r *Registry) Register(def Definition) error {
	if strings.TrimSpace(def.Key) == "" {
		return fmt.Errorf("setting: definition key cannot be empty")
	}
	if !def.Type.IsValid() {
		return fmt.Errorf("setting: invalid value type %q for %s", def.Type, def.Key)
	}
	if def.Type == TypeEnum && len(def.Options) == 0 {
		return fmt.Errorf("setting: enum %s declares no options", def.Key)
	}
	if _, exists := r.defs[def.Key]; exists {
		return fmt.Errorf("setting: %s is already registered", def.Key)
	}
	normalized, err := def.Normalize(def.Default)
	if err != nil {
		return fmt.Errorf("setting: invalid default for %s: %w", def.Key, err)
	}
	def.Default = normalized
	r.defs[def.Key] = def
	r.order = append(r.order, def.Key)
	return nil
}

// AddCascade declares a cascade rule. Every key it refers to must be registered.
func (r *Registry) AddCascade(rule CascadeRule) error {
	keys := []string{rule.When.Key}
	for _, f := range rule.Forces {
		keys = append(keys, f.Key)
	}
	if err := r.requireKeys(rule.Name, keys); err != nil {
		return err
	}
	r.cascades = append(r.cascades, rule)
	return nil
}

// AddGuard declares a guard rule. Every key it refers to must be registered.
func (r *Registry) AddGuard(rule GuardRule) error {
	keys := make([]string, 0, len(rule.When))
	for _, c := range rule.When {
		keys = append(keys, c.Key)
	}
	if err := r.requireKeys(rule.Name, keys); err != nil {
		return err
	}
	r.guards = append(r.guards, rule)
	return nil
}

func (r *Registry) requireKeys(rule string, keys []string) error {
	for _, k := range keys {
		if _, ok := r.defs[k]; !ok {
			return fmt.Errorf("setting: rule %s refers to unregistered setting %s", rule, k)
		}
	}
	return nil
}

// Lookup returns the definition of a key
func (r *Registry) Lookup(key string) (Definition, bool) {
	def, ok := r.defs[key]
	return def, ok
}

// Definitions returns all definitions in registration order
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.defs[k])
	}
	return out
}

// Normalize canonicalizes a raw value for key. Keys without a definition
// are stored as given.
func (r *Registry) Normalize(key, raw string) (string, error) {
	def, ok := r.defs[key]
	if !ok {
		return raw, nil
	}
	return def.Normalize(raw)
}

// Canonicalize returns a copy of values with every registered key in its
// canonical form. Values that do not parse are kept as stored.
func (r *Registry) Canonicalize(values Values) Values {
	out := make(Values, len(values))
	for k, v := range values {
		if normalized, err := r.Normalize(k, v); err == nil {
			v = normalized
		}
		out[k] = v
	}
	return out
}

// WithDefaults returns a copy of values with registered defaults filled in
// for keys the business does not have.
func (r *Registry) WithDefaults(values Values) Values {
	out := values.Clone()
	for _, k := range r.order {
		if _, ok := out[k]; !ok {
			out[k] = r.defs[k].Default
		}
	}
	return out
}

// Cascade applies cascade rules to values in place until nothing changes and
// returns the forced changes in the order they were applied.
func (r *Registry) Cascade(values Values) []Change {
	var forced []Change
	for range len(r.cascades) + 1 {
		changed := false
		for _, rule := range r.cascades {
			for _, f := range rule.Apply(values) {
				if values[f.Key] == f.Value {
					continue
				}
				values[f.Key] = f.Value
				forced = append(forced, f)
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return forced
}

// CheckGuards returns the first guard violation on values
func (r *Registry) CheckGuards(values Values) error {
	for _, g := range r.guards {
		if err := g.Check(values); err != nil {
			return err
		}
	}
	return nil
}
