// Package cloner deep-copies object graphs while preserving their topology.
//
// A Cloner keeps an identity map from original references to the clones it
// produced. Every Cloneable implementation must build its shell, register it
// with Register, and only then clone its children through the same Cloner.
// Registering before recursing is what terminates cycles: a revisited object
// resolves to its already registered shell. A Cloner lives for one top-level
// clone operation and is not safe for concurrent use.
package cloner

import (
	"errors"
	"fmt"
	"reflect"
)

var ErrCloneUnsupported = errors.New("clone unsupported")

// UnsupportedError names the type that lacks the cloning capability.
type UnsupportedError struct {
	Type string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCloneUnsupported, e.Type)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrCloneUnsupported
}

// Cloneable is implemented by pointer types that can be deep-copied.
type Cloneable interface {
	CloneWith(c *Cloner) any
}

type Cloner struct {
	mapping map[any]any
}

func New() *Cloner {
	return &Cloner{mapping: make(map[any]any)}
}

// Clone returns the clone of x, producing it on first request. A nil input
// (untyped or a typed nil pointer) yields nil. Values that are not Cloneable,
// or that cannot key the identity map (slices, maps, funcs), are rejected
// with an UnsupportedError.
func (c *Cloner) Clone(x any) (any, error) {
	if isNil(x) {
		return nil, nil
	}
	cloneable, ok := x.(Cloneable)
	if !ok || !hashable(x) {
		return nil, &UnsupportedError{Type: fmt.Sprintf("%T", x)}
	}
	if existing, ok := c.mapping[x]; ok {
		return existing, nil
	}
	return cloneable.CloneWith(c), nil
}

// Register records the shell for original. Implementations call it before
// cloning any child. Unhashable originals carry no identity and are skipped.
func (c *Cloner) Register(original, clone any) {
	if !hashable(original) {
		return
	}
	c.mapping[original] = clone
}

// Lookup returns the clone already produced for original, if any.
func (c *Cloner) Lookup(original any) (any, bool) {
	if !hashable(original) {
		return nil, false
	}
	clone, ok := c.mapping[original]
	return clone, ok
}

// Len is the number of distinct originals cloned so far.
func (c *Cloner) Len() int {
	return len(c.mapping)
}

// Deep clones a child reference of a known cloneable type. It is meant for
// use inside CloneWith implementations where the type is statically known.
func Deep[T Cloneable](c *Cloner, x T) T {
	var zero T
	if isNil(x) {
		return zero
	}
	if existing, ok := c.Lookup(x); ok {
		return existing.(T)
	}
	return x.CloneWith(c).(T)
}

// Copy clones x with a fresh Cloner and returns it with its static type.
func Copy[T any](x T) (T, error) {
	var zero T
	out, err := New().Clone(x)
	if err != nil || out == nil {
		return zero, err
	}
	typed, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("clone of %T produced %T", x, out)
	}
	return typed, nil
}

func isNil(x any) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func hashable(x any) bool {
	return x != nil && reflect.ValueOf(x).Comparable()
}
