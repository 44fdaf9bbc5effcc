package events

// Namespace is a prefix-scoped view over a root bus. Register and Emit
// prepend the prefix before delegating; all listener and retained state
// lives on the root, so views can be created and discarded freely without
// disposing anything.
type Namespace struct {
	root   *Bus
	prefix string
}

// Namespace returns a view of the bus scoped to prefix.
func (b *Bus) Namespace(prefix string) *Namespace {
	return &Namespace{root: b, prefix: prefix}
}

// Namespace returns a nested view; prefixes concatenate.
func (n *Namespace) Namespace(prefix string) *Namespace {
	return &Namespace{root: n.root, prefix: n.scope(prefix)}
}

// Prefix returns the accumulated prefix of this view.
func (n *Namespace) Prefix() string { return n.prefix }

// Root returns the bus this view delegates to.
func (n *Namespace) Root() *Bus { return n.root }

func (n *Namespace) scope(path string) string {
	if n.prefix == "" {
		return path
	}
	return n.prefix + n.root.sep + path
}

// Register adds a listener for the prefixed pattern on the root bus.
func (n *Namespace) Register(pattern string, handler Handler) (Handle, error) {
	return n.root.Register(n.scope(pattern), handler)
}

// Once registers a prefixed one-shot listener on the root bus.
func (n *Namespace) Once(pattern string, handler Handler) (Handle, error) {
	return n.root.Once(n.scope(pattern), handler)
}

// Wait waits for a single event on the prefixed pattern.
func (n *Namespace) Wait(pattern string) (<-chan Event, error) {
	return n.root.Wait(n.scope(pattern))
}

// Emit publishes on the prefixed channel through the root bus.
func (n *Namespace) Emit(channel string, payload any, retain bool) error {
	return n.root.Emit(n.scope(channel), payload, retain)
}

// Deafen removes a listener from the root bus.
func (n *Namespace) Deafen(handle Handle) {
	n.root.Deafen(handle)
}
