package board

// Store is the ordered element collection for one room.
//
// Elements keep their first-seen position for the lifetime of the
// board: upserting an existing ID replaces the element in its original
// slot, so clients that render in snapshot order keep a stable z-order
// while a stroke is still being extended.
//
// There is no size bound. The store grows with the document and is
// reclaimed only by Clear or by the owning room being expired.
type Store struct {
	elements []Element
	index    map[string]int // element ID -> slot in elements
}

// NewStore creates an empty element store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
	}
}

// Upsert inserts the element, or replaces the existing element with the
// same ID in place. The element is stored as given; the store performs
// no validation.
func (s *Store) Upsert(el Element) {
	if i, ok := s.index[el.ID]; ok {
		s.elements[i] = el
		return
	}
	s.index[el.ID] = len(s.elements)
	s.elements = append(s.elements, el)
}

// Clear removes every element unconditionally.
func (s *Store) Clear() {
	s.elements = nil
	s.index = make(map[string]int)
}

// Snapshot returns the current elements in insertion order. The
// returned slice is a copy; callers may hold it across later mutations.
func (s *Store) Snapshot() []Element {
	out := make([]Element, len(s.elements))
	copy(out, s.elements)
	return out
}

// Len returns the number of elements on the board.
func (s *Store) Len() int {
	return len(s.elements)
}
