// Package mathops holds the pure computation tools. They keep no state and
// do no I/O, so the dispatcher can call them without timeouts or artifacts.
package mathops

import (
	"math"
	"strconv"
	"strings"
)

// Add returns the sum of two integers.
func Add(a, b int) int {
	return a + b
}

// StringsToCharsToInt returns the Unicode code point of every character in s,
// in order. For ASCII input these are the ASCII values.
func StringsToCharsToInt(s string) []int {
	vals := make([]int, 0, len(s))
	for _, r := range s {
		vals = append(vals, int(r))
	}
	return vals
}

// IntListToExponentialSum returns the sum of e**x over xs.
func IntListToExponentialSum(xs []int) float64 {
	var sum float64
	for _, x := range xs {
		sum += math.Exp(float64(x))
	}
	return sum
}

// FormatInts renders a list result as "[73, 78, 68]" so it can be fed back
// to the model in the same shape it saw in its examples.
func FormatInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatFloat renders a float in its shortest round-trippable form.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
