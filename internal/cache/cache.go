package cache

// Cache defines a typed view over one memoization table
type Cache[T any] interface {
	// Load returns the cached value for key, computing it on a miss
	Load(key string, compute func() T) T

	// Get retrieves a value without computing it
	Get(key string) (T, bool)

	// Delete removes a key from the table
	Delete(key string)

	// Len returns the current number of entries in the table
	Len() int
}

// Table binds a Store category to a single value type so that every call
// site using it is checked by the compiler.
type Table[T any] struct {
	store    *Store
	category Category
}

var _ Cache[string] = Table[string]{}

// For returns the typed table for category.
func For[T any](s *Store, category Category) Table[T] {
	return Table[T]{store: s, category: category}
}

// Category returns the category backing the table
func (t Table[T]) Category() Category {
	return t.category
}

// Load implements Cache.Load
func (t Table[T]) Load(key string, compute func() T) T {
	return Load(t.store, t.category, key, compute)
}

// Get implements Cache.Get
func (t Table[T]) Get(key string) (T, bool) {
	t.store.mu.Lock()
	raw, ok := t.store.table(t.category)[key]
	t.store.mu.Unlock()

	var zero T
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Delete implements Cache.Delete
func (t Table[T]) Delete(key string) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	delete(t.store.table(t.category), key)
}

// Len implements Cache.Len
func (t Table[T]) Len() int {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return len(t.store.table(t.category))
}
