package util

import "fmt"

// GetOne returns the sole element of a map. It returns an error when
// the map is empty or holds more than one element.
func GetOne[K comparable, T any](m map[K]T) (T, error) {
	var zero T
	if len(m) == 0 {
		return zero, fmt.Errorf("no element found")
	}
	if len(m) > 1 {
		return zero, fmt.Errorf("multiple elements found")
	}
	for _, v := range m {
		return v, nil
	}
	return zero, nil
}
