package space

// Index assigns dense positions to keys in first-seen order. Positions never
// change once assigned.
type Index struct {
	positions map[string]int
	keys      []string
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{positions: make(map[string]int)}
}

// Add returns the position of key, assigning the next free one if key is new.
func (x *Index) Add(key string) int {
	if pos, ok := x.positions[key]; ok {
		return pos
	}
	pos := len(x.keys)
	x.positions[key] = pos
	x.keys = append(x.keys, key)
	return pos
}

// Lookup returns the position of key.
func (x *Index) Lookup(key string) (int, bool) {
	pos, ok := x.positions[key]
	return pos, ok
}

// Key returns the key stored at position pos.
func (x *Index) Key(pos int) string {
	return x.keys[pos]
}

// Keys returns the keys in position order.
func (x *Index) Keys() []string {
	out := make([]string, len(x.keys))
	copy(out, x.keys)
	return out
}

// Len returns the number of indexed keys.
func (x *Index) Len() int {
	return len(x.keys)
}
