package memtree

import "sync"

type QualifiedName struct {
	NamespaceURI string
	Name         string
}

func (q QualifiedName) is(namespaceURI, name string) bool {
	return q.Name == name && (namespaceURI == "" || q.NamespaceURI == namespaceURI)
}

// TypeRegistry records the base type of each registered type, it is used to answer
// "is-a" questions for derived type selectors. It is safe for concurrent use.
type TypeRegistry struct {
	lock  sync.RWMutex
	bases map[QualifiedName]QualifiedName
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		bases: map[QualifiedName]QualifiedName{},
	}
}

// Register records base as the direct base type of t.
func (r *TypeRegistry) Register(t, base QualifiedName) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.bases[t] = base
}

func (r *TypeRegistry) Base(t QualifiedName) (QualifiedName, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	base, ok := r.bases[t]
	return base, ok
}

// IsOfOrDerivedFrom walks the base chain of t, an empty namespaceURI matches any namespace.
func (r *TypeRegistry) IsOfOrDerivedFrom(t QualifiedName, namespaceURI, name string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	current := t
	//The chain cannot be longer than the number of registered types unless it is cyclic.
	for i := 0; i <= len(r.bases); i++ {
		if current.is(namespaceURI, name) {
			return true
		}
		base, ok := r.bases[current]
		if !ok {
			return false
		}
		current = base
	}
	return false
}
