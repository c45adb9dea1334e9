package build

// Row-index set helpers. All partition queries return rows in table order, so
// plain merges keep determinism across rebuilds.

func toSet(rows []int) map[int]struct{} {
	s := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		s[r] = struct{}{}
	}
	return s
}

// difference returns the rows of a not contained in b, preserving order.
func difference(a, b []int) []int {
	bs := toSet(b)
	var out []int
	for _, r := range a {
		if _, ok := bs[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// intersect returns the rows of a also contained in b, preserving a's order.
func intersect(a, b []int) []int {
	bs := toSet(b)
	var out []int
	for _, r := range a {
		if _, ok := bs[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// union merges b into a, preserving order and dropping duplicates.
func union(a, b []int) []int {
	as := toSet(a)
	out := append([]int(nil), a...)
	for _, r := range b {
		if _, ok := as[r]; !ok {
			out = append(out, r)
		}
	}
	return out
}
