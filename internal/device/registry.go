package device

import (
	"fmt"
	"slices"
	"sort"
)

// Registry is a read-only catalogue of type specs for one direction.
// It is safe for concurrent use because it is never mutated after NewRegistry.
type Registry struct {
	direction Direction
	specs     map[string]Spec
	order     []string
}

// NewRegistry validates specs and builds a registry. Type names must be
// unique and each spec must be consistent with its Kind.
func NewRegistry(direction Direction, specs []Spec) (*Registry, error) {
	r := &Registry{
		direction: direction,
		specs:     make(map[string]Spec, len(specs)),
		order:     make([]string, 0, len(specs)),
	}

	for _, s := range specs {
		if err := checkSpec(s); err != nil {
			return nil, err
		}
		if _, dup := r.specs[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidSpec, s.Name)
		}
		r.specs[s.Name] = s.clone()
		r.order = append(r.order, s.Name)
	}
	return r, nil
}

// MustRegistry is NewRegistry for the compiled-in catalogues. It panics on an
// inconsistent spec.
func MustRegistry(direction Direction, specs []Spec) *Registry {
	r, err := NewRegistry(direction, specs)
	if err != nil {
		panic(err)
	}
	return r
}

func checkSpec(s Spec) error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidSpec)
	}
	if len(s.Rooms) == 0 {
		return fmt.Errorf("%w: %s has no rooms", ErrInvalidSpec, s.Name)
	}

	switch s.Kind {
	case KindBinary:
		if len(s.AllowedValues) == 0 {
			return fmt.Errorf("%w: binary type %s has no allowed values", ErrInvalidSpec, s.Name)
		}
	case KindFloat:
		if s.Range == nil || s.Range.Min > s.Range.Max {
			return fmt.Errorf("%w: float type %s needs a range with min <= max", ErrInvalidSpec, s.Name)
		}
	case KindInteger:
		for i, b := range s.Bands {
			if b.Min > b.Max {
				return fmt.Errorf("%w: %s band %q has min > max", ErrInvalidSpec, s.Name, b.Label)
			}
			if i > 0 && b.Min <= s.Bands[i-1].Max {
				return fmt.Errorf("%w: %s bands overlap or are out of order at %q", ErrInvalidSpec, s.Name, b.Label)
			}
		}
	default:
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidSpec, s.Name, s.Kind)
	}
	return nil
}

// Direction reports whether this registry holds sensors or commands.
func (r *Registry) Direction() Direction {
	return r.direction
}

// Lookup returns the spec for a type name.
func (r *Registry) Lookup(name string) (Spec, error) {
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, &ValidationError{Field: "type", Value: name, Err: ErrUnknownType}
	}
	return s.clone(), nil
}

// IsRoomValid reports whether the type exists in room. Unknown types are never valid.
func (r *Registry) IsRoomValid(name, room string) bool {
	s, ok := r.specs[name]
	return ok && s.HasRoom(room)
}

// Check resolves a (type, room) pair, failing with ErrUnknownType or
// ErrRoomNotApplicable.
func (r *Registry) Check(name, room string) (Spec, error) {
	s, err := r.Lookup(name)
	if err != nil {
		return Spec{}, err
	}
	if !s.HasRoom(room) {
		return Spec{}, &ValidationError{
			Field:  "room",
			Value:  room,
			Err:    ErrRoomNotApplicable,
			Detail: fmt.Sprintf("%s is available in %v", name, s.Rooms),
		}
	}
	return s, nil
}

// Types returns every spec in catalogue order.
func (r *Registry) Types() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name].clone())
	}
	return out
}

// Rooms returns every room that has at least one type, sorted.
func (r *Registry) Rooms() []string {
	var rooms []string
	for _, name := range r.order {
		for _, room := range r.specs[name].Rooms {
			if !slices.Contains(rooms, room) {
				rooms = append(rooms, room)
			}
		}
	}
	sort.Strings(rooms)
	return rooms
}

// TypesForRoom returns the specs available in room, in catalogue order.
func (r *Registry) TypesForRoom(room string) []Spec {
	var out []Spec
	for _, name := range r.order {
		if s := r.specs[name]; s.HasRoom(room) {
			out = append(out, s.clone())
		}
	}
	return out
}
