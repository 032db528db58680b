package util

/*
TransformSlice returns the values returned by mapper for the elements of s, in
the same order. Handy for rendering addresses, hashes etc.
*/
func TransformSlice[S ~[]E, E any, V any](s S, mapper func(E) V) []V {
	r := make([]V, len(s))
	for i, v := range s {
		r[i] = mapper(v)
	}
	return r
}

// SafeAdd returns a+b, false when the sum overflows uint64.
func SafeAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
