package feedbackqueue

import (
	"fmt"
	"slices"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

// Registry is an immutable TargetType to handler lookup table built once at
// startup.
type Registry[T Handler] struct {
	kind     string
	handlers map[feedback.TargetType]T
}

// NewRegistry indexes handlers by their supported type. Duplicate or invalid
// types are wiring errors.
func NewRegistry[T Handler](kind string, handlers ...T) (*Registry[T], error) {
	m := make(map[feedback.TargetType]T, len(handlers))
	for _, h := range handlers {
		tt := h.SupportedType()
		if !tt.Valid() {
			return nil, fmt.Errorf("%s registry: invalid target type %q", kind, tt)
		}
		if _, dup := m[tt]; dup {
			return nil, fmt.Errorf("%s registry: duplicate registration for %s", kind, tt)
		}
		m[tt] = h
	}
	return &Registry[T]{kind: kind, handlers: m}, nil
}

// Resolve returns the handler for tt or an error wrapping
// feedback.ErrNotRegistered.
func (r *Registry[T]) Resolve(tt feedback.TargetType) (T, error) {
	h, ok := r.handlers[tt]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s for %s: %w", r.kind, tt, feedback.ErrNotRegistered)
	}
	return h, nil
}

// Types returns the registered target types in sorted order.
func (r *Registry[T]) Types() []feedback.TargetType {
	out := make([]feedback.TargetType, 0, len(r.handlers))
	for tt := range r.handlers {
		out = append(out, tt)
	}
	slices.Sort(out)
	return out
}

// RequireAll fails if any of types has no handler.
func (r *Registry[T]) RequireAll(types []feedback.TargetType) error {
	for _, tt := range types {
		if _, err := r.Resolve(tt); err != nil {
			return err
		}
	}
	return nil
}

// Registries bundles the three lookup tables used by the orchestrator.
type Registries struct {
	Payload  *Registry[PayloadValidator]
	Merge    *Registry[MergeValidator]
	Strategy *Registry[MergeStrategy]
}

// Check verifies that every known target type is covered by all three
// registries.
func (r Registries) Check() error {
	if err := r.Payload.RequireAll(feedback.TargetTypes); err != nil {
		return err
	}
	if err := r.Merge.RequireAll(feedback.TargetTypes); err != nil {
		return err
	}
	return r.Strategy.RequireAll(feedback.TargetTypes)
}
