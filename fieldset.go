package docmodel

import "math/bits"

// FieldSet is a growable bitset of field indices.
type FieldSet []uint64

func (s *FieldSet) Set(i int) {
	w := i / 64
	for len(*s) <= w {
		*s = append(*s, 0)
	}
	(*s)[w] |= 1 << (i % 64)
}

func (s FieldSet) Has(i int) bool {
	w := i / 64
	return w < len(s) && s[w]&(1<<(i%64)) != 0
}

func (s FieldSet) Count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

func (s FieldSet) IsEmpty() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

func (s *FieldSet) Clear() {
	clear(*s)
}
