package docmodel

// DefaultCompareAttributes are the attribute keys that participate in
// change detection. Keys outside this list never make blocks unequal.
var DefaultCompareAttributes = []string{
	"childrenType", "start", "level", "url", "size", "ref", "language", "view", "width",
}

// DefaultStructuralAttributes are attribute keys that change a block's
// nesting semantics. A difference re-emits the block's position.
var DefaultStructuralAttributes = []string{"childrenType", "listLevel"}

// Comparator decides equality for change-detection purposes.
// It is not full structural equality: id and revision are ignored and
// only allowlisted attributes are compared.
type Comparator struct {
	Attributes []string
	Structural []string
}

// DefaultComparator returns a Comparator using the default allowlists.
func DefaultComparator() Comparator {
	return Comparator{
		Attributes: DefaultCompareAttributes,
		Structural: DefaultStructuralAttributes,
	}
}

// BlocksEqual compares a and b with the default allowlist.
func BlocksEqual(a, b *Block) bool {
	return DefaultComparator().Equal(a, b)
}

// Equal reports whether a and b carry the same content.
func (c Comparator) Equal(a, b *Block) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Text != b.Text || a.Ref != b.Ref {
		return false
	}
	if !annotationsEqual(a.Annotations, b.Annotations) {
		return false
	}
	return attrsEqualOn(c.Attributes, a.Attributes, b.Attributes)
}

// StructuralChange reports whether a structural attribute differs.
func (c Comparator) StructuralChange(prev, cur *Block) bool {
	if prev == nil || cur == nil {
		return false
	}
	return !attrsEqualOn(c.Structural, prev.Attributes, cur.Attributes)
}

func attrsEqualOn(keys []string, a, b map[string]string) bool {
	for _, k := range keys {
		av, aok := a[k]
		bv, bok := b[k]
		if aok != bok || av != bv {
			return false
		}
	}
	return true
}

// annotationsEqual is order-sensitive; nil and empty are equal.
func annotationsEqual(a, b []Annotation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Type != y.Type || x.Ref != y.Ref {
			return false
		}
		if !mapsEqual(x.Attributes, y.Attributes) {
			return false
		}
		if !int32sEqual(x.Starts, y.Starts) || !int32sEqual(x.Ends, y.Ends) {
			return false
		}
	}
	return true
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func int32sEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
