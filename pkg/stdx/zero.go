package stdx

// Zero returns the zero value for a given type T.
//
// The zero value is the default value that variables of type T
// are initialized to when declared without an explicit initializer.
func Zero[T any]() T {
	var zero T
	return zero
}
