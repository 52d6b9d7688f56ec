package params

import (
	"fmt"
	"sync"
)

// Kind identifies the constraint class of a field.
type Kind int

const (
	// KindMagnitude is a float64 bounded to [0, 1].
	KindMagnitude Kind = iota
	// KindSelector is a string drawn from a fixed allowed set.
	KindSelector
	// KindRange is an integer span (lo, hi) inside fixed bounds.
	KindRange
)

// String returns the schema name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMagnitude:
		return "magnitude"
	case KindSelector:
		return "selector"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

// Span is an inclusive integer interval. It is the value type of range
// fields and the bounds type of their declarations.
type Span struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return s.Lo <= other.Lo && other.Lo <= other.Hi && other.Hi <= s.Hi
}

// FieldSpec declares one named, typed, constrained field. Specs are copied
// at construction time, so a declaration slice can be reused to build
// independent spaces.
type FieldSpec struct {
	Name    string
	Kind    Kind
	Doc     string
	Default interface{}
	Allowed []string // selector fields only
	Bounds  Span     // range fields only
}

func (f FieldSpec) clone() FieldSpec {
	c := f
	if f.Allowed != nil {
		c.Allowed = make([]string, len(f.Allowed))
		copy(c.Allowed, f.Allowed)
	}
	return c
}

// validate checks the declaration itself, then the default value against it.
func (f FieldSpec) validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	switch f.Kind {
	case KindMagnitude:
	case KindSelector:
		if len(f.Allowed) == 0 {
			return fmt.Errorf("selector field %q declares no allowed values", f.Name)
		}
	case KindRange:
		if f.Bounds.Lo > f.Bounds.Hi {
			return fmt.Errorf("range field %q has inverted bounds (%d, %d)", f.Name, f.Bounds.Lo, f.Bounds.Hi)
		}
	default:
		return fmt.Errorf("field %q has unknown kind %d", f.Name, f.Kind)
	}
	if _, err := f.normalize(f.Default); err != nil {
		return fmt.Errorf("default for field %q rejected: %w", f.Name, err)
	}
	return nil
}

// normalize coerces value into the field's canonical representation and
// checks it against the declared constraint. It never mutates anything.
func (f FieldSpec) normalize(value interface{}) (interface{}, error) {
	switch f.Kind {
	case KindMagnitude:
		v, ok := asFloat(value)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Value: value, Constraint: "value must be a number"}
		}
		if v < 0 || v > 1 {
			return nil, &ValidationError{Field: f.Name, Value: value, Constraint: "value must be within [0, 1]"}
		}
		return v, nil

	case KindSelector:
		s, ok := value.(string)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Value: value, Constraint: "value must be a string"}
		}
		for _, a := range f.Allowed {
			if a == s {
				return s, nil
			}
		}
		return nil, &ValidationError{Field: f.Name, Value: value, Constraint: fmt.Sprintf("value must be one of %v", f.Allowed)}

	case KindRange:
		sp, ok := asSpan(value)
		if !ok {
			return nil, &ValidationError{Field: f.Name, Value: value, Constraint: "value must be an integer pair (lo, hi)"}
		}
		if sp.Lo > sp.Hi || sp.Lo < f.Bounds.Lo || sp.Hi > f.Bounds.Hi {
			return nil, &ValidationError{
				Field: f.Name, Value: value,
				Constraint: fmt.Sprintf("pair must satisfy %d <= lo <= hi <= %d", f.Bounds.Lo, f.Bounds.Hi),
			}
		}
		return sp, nil
	}
	return nil, &ValidationError{Field: f.Name, Value: value, Constraint: "unknown field kind"}
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func asSpan(value interface{}) (Span, bool) {
	switch v := value.(type) {
	case Span:
		return v, true
	case [2]int:
		return Span{Lo: v[0], Hi: v[1]}, true
	case []int:
		if len(v) == 2 {
			return Span{Lo: v[0], Hi: v[1]}, true
		}
	case []interface{}:
		// JSON arrays decode to []interface{} with float64 elements.
		if len(v) == 2 {
			lo, okLo := asInt(v[0])
			hi, okHi := asInt(v[1])
			if okLo && okHi {
				return Span{Lo: lo, Hi: hi}, true
			}
		}
	case map[string]interface{}:
		// JSON objects: {"lo": 2, "hi": 4}.
		lo, okLo := asInt(v["lo"])
		hi, okHi := asInt(v["hi"])
		if okLo && okHi {
			return Span{Lo: lo, Hi: hi}, true
		}
	}
	return Span{}, false
}

// asInt accepts integral values in the types JSON decoding and direct Go
// callers produce. Fractional floats are rejected.
func asInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	case float32:
		if v == float32(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// ParameterSpace holds the validated configuration state of one exploration
// session. Field updates are validated before they are stored; successful
// updates notify subscribed observers. All methods are safe for concurrent
// use; Set is atomic per field.
type ParameterSpace struct {
	mu     sync.RWMutex
	specs  []FieldSpec
	index  map[string]int
	values map[string]interface{}

	observers []observer
	nextObsID int
}

// New builds a ParameterSpace from field declarations. Every default is
// validated against its own constraint; declarations are deep-copied so the
// caller's slice stays independent of the instance.
func New(specs ...FieldSpec) (*ParameterSpace, error) {
	p := &ParameterSpace{
		specs:  make([]FieldSpec, 0, len(specs)),
		index:  make(map[string]int, len(specs)),
		values: make(map[string]interface{}, len(specs)),
	}
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("failed to declare parameter space: %w", err)
		}
		if _, dup := p.index[spec.Name]; dup {
			return nil, fmt.Errorf("failed to declare parameter space: duplicate field %q", spec.Name)
		}
		c := spec.clone()
		def, err := c.normalize(c.Default)
		if err != nil {
			return nil, fmt.Errorf("failed to declare parameter space: %w", err)
		}
		p.index[c.Name] = len(p.specs)
		p.specs = append(p.specs, c)
		p.values[c.Name] = def
	}
	return p, nil
}

// Set validates value against the field's declared constraint and stores it.
// On success observers are notified synchronously, in subscription order,
// with the old and new values. On failure the field is left unchanged, no
// observer runs, and the returned error identifies the violated constraint.
func (p *ParameterSpace) Set(field string, value interface{}) error {
	p.mu.Lock()
	i, ok := p.index[field]
	if !ok {
		p.mu.Unlock()
		return &UnknownFieldError{Field: field}
	}
	v, err := p.specs[i].normalize(value)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	old := p.values[field]
	p.values[field] = v
	obs := make([]observer, len(p.observers))
	copy(obs, p.observers)
	p.mu.Unlock()

	// Observers run outside the lock so they may read the space.
	notifyAll(obs, Change{Field: field, Old: old, New: v})
	return nil
}

// Get returns the current value of a declared field.
func (p *ParameterSpace) Get(field string) (interface{}, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[field]
	if !ok {
		return nil, &UnknownFieldError{Field: field}
	}
	return v, nil
}

// Magnitude returns the value of a magnitude field.
func (p *ParameterSpace) Magnitude(field string) (float64, error) {
	v, err := p.typed(field, KindMagnitude)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Selection returns the value of a selector field.
func (p *ParameterSpace) Selection(field string) (string, error) {
	v, err := p.typed(field, KindSelector)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Range returns the value of a range field.
func (p *ParameterSpace) Range(field string) (Span, error) {
	v, err := p.typed(field, KindRange)
	if err != nil {
		return Span{}, err
	}
	return v.(Span), nil
}

func (p *ParameterSpace) typed(field string, kind Kind) (interface{}, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.index[field]
	if !ok {
		return nil, &UnknownFieldError{Field: field}
	}
	if p.specs[i].Kind != kind {
		return nil, fmt.Errorf("field %q is %s, not %s", field, p.specs[i].Kind, kind)
	}
	return p.values[field], nil
}

// Snapshot returns a copy of every current field value keyed by field name.
func (p *ParameterSpace) Snapshot() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		snap[k] = v
	}
	return snap
}

// Schema returns the field declarations in declaration order. The result is
// a copy: widget layers may introspect it freely without aliasing internal
// state.
func (p *ParameterSpace) Schema() []FieldSpec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]FieldSpec, len(p.specs))
	for i, s := range p.specs {
		out[i] = s.clone()
	}
	return out
}
