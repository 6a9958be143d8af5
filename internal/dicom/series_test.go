package dicom

import (
	"testing"
)

func intp(n int) *int { return &n }

func TestSampleIndices(t *testing.T) {
	tests := []struct {
		n, max int
		want   []int
	}{
		{0, 16, nil},
		{3, 16, []int{0, 1, 2}},
		{16, 16, func() []int {
			out := make([]int, 16)
			for i := range out {
				out[i] = i
			}
			return out
		}()},
		{10, 4, []int{0, 2, 5, 7}},
	}
	for _, tt := range tests {
		got := SampleIndices(tt.n, tt.max)
		if len(got) != len(tt.want) {
			t.Fatalf("SampleIndices(%d, %d) = %v, want %v", tt.n, tt.max, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("SampleIndices(%d, %d) = %v, want %v", tt.n, tt.max, got, tt.want)
				break
			}
		}
	}

	got := SampleIndices(100, 16)
	if len(got) != 16 || got[0] != 0 || got[15] != 93 {
		t.Errorf("SampleIndices(100, 16) = %v", got)
	}
}

func TestSortSlices(t *testing.T) {
	a := &Header{Path: "a", InstanceNumber: intp(2), ImagePositionPatient: []float64{0, 0, 5}}
	b := &Header{Path: "b", InstanceNumber: intp(1), ImagePositionPatient: []float64{0, 0, 10}}

	sorted, key := SortSlices([]*Header{a, b})
	if key != SortInstanceNumber || sorted[0] != b {
		t.Errorf("by instance: key=%s first=%s", key, sorted[0].Path)
	}

	b.InstanceNumber = nil
	sorted, key = SortSlices([]*Header{b, a})
	if key != SortImagePositionPatient || sorted[0] != a {
		t.Errorf("by position: key=%s first=%s", key, sorted[0].Path)
	}

	a.ImagePositionPatient, b.ImagePositionPatient = nil, nil
	sorted, key = SortSlices([]*Header{b, a})
	if key != SortNone || sorted[0] != b {
		t.Errorf("unsorted: key=%s first=%s", key, sorted[0].Path)
	}
}

func TestZSpacing(t *testing.T) {
	thick := 3.0
	hs := []*Header{
		{ImagePositionPatient: []float64{0, 0, 0}, SliceThickness: &thick},
		{ImagePositionPatient: []float64{0, 0, 1.5}},
		{ImagePositionPatient: []float64{0, 0, 3.5}},
	}
	if z := ZSpacing(hs); z == nil || *z != 1.75 {
		t.Errorf("ZSpacing = %v, want 1.75", z)
	}

	hs[1].ImagePositionPatient, hs[2].ImagePositionPatient = nil, nil
	if z := ZSpacing(hs); z == nil || *z != 3.0 {
		t.Errorf("fallback ZSpacing = %v, want 3.0", z)
	}
	if z := ZSpacing(nil); z != nil {
		t.Errorf("empty ZSpacing = %v, want nil", z)
	}
}

func TestLargestSeries(t *testing.T) {
	hs := []*Header{
		{Path: "1", SeriesInstanceUID: "A"},
		{Path: "2", SeriesInstanceUID: "B"},
		{Path: "3", SeriesInstanceUID: "B"},
		{Path: "4"},
	}
	got := LargestSeries(hs)
	if len(got) != 2 || got[0].SeriesInstanceUID != "B" {
		t.Errorf("LargestSeries picked %v", got)
	}
	if g := GroupBySeries(hs); len(g[noSeriesUID]) != 1 {
		t.Errorf("headers without a series uid should share %q", noSeriesUID)
	}
}

func TestConsistencyScore(t *testing.T) {
	tests := []struct {
		name                string
		min, max, std, meta float64
		size                int
		want                float64
	}{
		{"clean", 0, 1000, 50, 1, 4096, 1.0},
		{"flat", 5, 5, 0, 1, 4096, 0.58},
		{"narrow range", 0, 5, 2, 1, 4096, 0.86},
		{"small", 0, 1000, 50, 1, 100, 0.86},
		{"no metadata", 0, 1000, 50, 0, 4096, 0.7},
		{"everything wrong", 5, 5, 0, 0, 1, 0.14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := consistencyScore(tt.min, tt.max, tt.std, tt.size, tt.meta); got != tt.want {
				t.Errorf("consistencyScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsImageModality(t *testing.T) {
	for _, m := range []string{"CT", "MR", "PT", "", "dx"} {
		if !IsImageModality(m) {
			t.Errorf("%q should be an image modality", m)
		}
	}
	for _, m := range []string{"SR", "seg", "RTSTRUCT", " KO "} {
		if IsImageModality(m) {
			t.Errorf("%q should not be an image modality", m)
		}
	}
}

func TestISODate(t *testing.T) {
	if d := ISODate("20240115"); d == nil || *d != "2024-01-15" {
		t.Errorf("ISODate = %v", d)
	}
	for _, raw := range []string{"", "2024-01-15", "2024011", "abcdefgh"} {
		if d := ISODate(raw); d != nil {
			t.Errorf("ISODate(%q) = %v, want nil", raw, *d)
		}
	}
}
