package synth

import (
	"slices"
	"strings"
	"testing"
)

func TestPatientName(t *testing.T) {
	french := 0
	for seed := uint64(0); seed < 200; seed++ {
		name := PatientName(seed)
		if name != PatientName(seed) {
			t.Fatalf("seed %d: name not stable", seed)
		}
		last, first, ok := strings.Cut(name, "^")
		if !ok || last == "" || first == "" {
			t.Fatalf("seed %d: malformed name %q", seed, name)
		}
		if last != strings.ToUpper(last) {
			t.Errorf("seed %d: last name %q not upper case", seed, last)
		}
		if slices.Contains(frenchFirstNames, first) {
			french++
		}
	}
	// 20% expected, allow generous slack
	if french < 10 || french > 80 {
		t.Errorf("french names = %d/200, expected around 40", french)
	}
}
