package field

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is wrapped by every failed registry lookup
var ErrNotFound = errors.New("not found in field registry")

// Phase is a dispersed or continuous phase; it is registered under its
// phase-fraction name, alpha.<name>.
type Phase interface {
	Name() string
	Alpha() *Scalar
	D() *Scalar
	Rho() *Scalar
}

// Provider is read-only access to the fields of a run, by name
type Provider interface {
	Scalar(name string) (*Scalar, error)
	Vector(name string) (*Vector, error)
	Phase(name string) (Phase, error)
}

// LookupError reports which name and kind of object failed to resolve
type LookupError struct {
	Name string
	Kind string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q %s", e.Kind, e.Name, ErrNotFound.Error())
}

func (e *LookupError) Unwrap() error { return ErrNotFound }

// GroupName appends a phase or pair group to a base field name
func GroupName(name, group string) string {
	if group == "" {
		return name
	}
	return name + "." + group
}

// Registry is the in-memory Provider. It is populated once during setup and
// then only read.
type Registry struct {
	scalars map[string]*Scalar
	vectors map[string]*Vector
	phases  map[string]Phase
}

func NewRegistry() *Registry {
	return &Registry{
		scalars: make(map[string]*Scalar),
		vectors: make(map[string]*Vector),
		phases:  make(map[string]Phase),
	}
}

func (r *Registry) AddScalar(s ...*Scalar) *Registry {
	for _, ss := range s {
		r.scalars[ss.Name] = ss
	}
	return r
}

func (r *Registry) AddVector(v ...*Vector) *Registry {
	for _, vv := range v {
		r.vectors[vv.Name] = vv
	}
	return r
}

// AddPhase registers p under alpha.<name>, both as a Phase and as the
// phase-fraction scalar.
func (r *Registry) AddPhase(p Phase) *Registry {
	key := GroupName("alpha", p.Name())
	r.phases[key] = p
	r.scalars[key] = p.Alpha()
	return r
}

func (r *Registry) Scalar(name string) (*Scalar, error) {
	if s, ok := r.scalars[name]; ok {
		return s, nil
	}
	return nil, &LookupError{Name: name, Kind: "scalar field"}
}

func (r *Registry) Vector(name string) (*Vector, error) {
	if v, ok := r.vectors[name]; ok {
		return v, nil
	}
	return nil, &LookupError{Name: name, Kind: "vector field"}
}

func (r *Registry) Phase(name string) (Phase, error) {
	if p, ok := r.phases[name]; ok {
		return p, nil
	}
	return nil, &LookupError{Name: name, Kind: "phase"}
}

// Names lists everything registered, sorted
func (r *Registry) Names() (names []string) {
	seen := make(map[string]struct{})
	for k := range r.scalars {
		seen[k] = struct{}{}
	}
	for k := range r.vectors {
		seen[k] = struct{}{}
	}
	for k := range r.phases {
		seen[k] = struct{}{}
	}
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}
