// Package util holds small numeric helpers shared by the analysis packages.
package util

import "strconv"

// Round rounds f to the given number of decimal places. Exact binary ties
// go to the even digit, so -6.25 rounds to -6.2 while 2.675, stored as
// 2.67499..., rounds to 2.67. Negative zero is normalised to zero.
func Round(f float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', places, 64), 64)
	if err != nil {
		return f
	}
	if r == 0 {
		return 0
	}
	return r
}

// RoundPtr rounds *f, passing nil through.
func RoundPtr(f *float64, places int) *float64 {
	if f == nil {
		return nil
	}
	r := Round(*f, places)
	return &r
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
