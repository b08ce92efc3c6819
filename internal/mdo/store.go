package mdo

import "sort"

// Store holds the named values of one model evaluation. A Store is owned by
// exactly one evaluation at a time; concurrent evaluations must work on
// clones so that re-evaluating a model stays referentially transparent.
type Store struct {
	values Values
}

func NewStore() *Store {
	return &Store{values: make(Values)}
}

// NewStoreFrom seeds a store with initial values (copied).
func NewStoreFrom(init Values) *Store {
	s := NewStore()
	for k, v := range init {
		s.values[k] = v.Clone()
	}
	return s
}

func (s *Store) Set(name string, v Value) { s.values[name] = v.Clone() }

func (s *Store) SetScalar(name string, v float64) { s.values[name] = Scalar(v) }

func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Float returns the scalar component of name, or 0 when unset.
func (s *Store) Float(name string) float64 {
	v, ok := s.values[name]
	if !ok {
		return 0
	}
	return v.Float()
}

func (s *Store) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

func (s *Store) Len() int { return len(s.values) }

// Names returns all variable names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy. Finite-difference columns evaluate against
// clones so no evaluation observes another's writes.
func (s *Store) Clone() *Store {
	return &Store{values: s.values.Clone()}
}

// Snapshot copies the tracked names into a Values map, for residual
// bookkeeping between solver iterations.
func (s *Store) Snapshot(names []string) Values {
	snap := make(Values, len(names))
	for _, n := range names {
		if v, ok := s.values[n]; ok {
			snap[n] = v.Clone()
		}
	}
	return snap
}
