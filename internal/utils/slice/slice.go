package slice

// Contains reports whether item is present in s.
func Contains[T comparable](s []T, item T) bool {
	for _, v := range s {
		if v == item {
			return true
		}
	}
	return false
}

// Difference returns the elements of a that are not in b, keeping a's order.
func Difference[T comparable](a, b []T) []T {
	skip := make(map[T]struct{}, len(b))
	for _, v := range b {
		skip[v] = struct{}{}
	}
	var out []T
	for _, v := range a {
		if _, ok := skip[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
