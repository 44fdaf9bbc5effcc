// Package injector is a type-keyed dependency registry. Modules use it to
// look up shared collaborators without holding references to each other;
// it has no bearing on bus or orchestrator correctness.
package injector

import (
	"reflect"

	"github.com/alphadose/haxmap"
)

// Injector stores one value per Go type.
type Injector struct {
	values *haxmap.Map[string, any]
}

// New creates an empty injector.
func New() *Injector {
	return &Injector{values: haxmap.New[string, any]()}
}

func key[T any]() string {
	return reflect.TypeFor[T]().String()
}

// Provide registers value under its static type, replacing any previous
// binding for that type.
func Provide[T any](i *Injector, value T) {
	i.values.Set(key[T](), value)
}

// Resolve returns the value bound to type T.
func Resolve[T any](i *Injector) (T, bool) {
	var zero T
	v, ok := i.values.Get(key[T]())
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// ProvideNamed registers a value under an explicit name, for cases where
// several bindings of the same type must coexist.
func ProvideNamed[T any](i *Injector, name string, value T) {
	i.values.Set(key[T]()+"#"+name, value)
}

// ResolveNamed returns the value bound to type T under name.
func ResolveNamed[T any](i *Injector, name string) (T, bool) {
	var zero T
	v, ok := i.values.Get(key[T]() + "#" + name)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Remove drops the binding for type T.
func Remove[T any](i *Injector) {
	i.values.Del(key[T]())
}

// Len returns the number of bindings.
func (i *Injector) Len() int {
	return int(i.values.Len())
}
