package dicom

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrsinham/lesiontrack/internal/util"
)

// Sorting keys reported in the imaging block.
const (
	SortInstanceNumber       = "InstanceNumber"
	SortImagePositionPatient = "ImagePositionPatient"
	SortNone                 = "none"
)

const noSeriesUID = "__none__"

// CollectFiles returns the candidate DICOM files under dir, recursively and
// in lexical order. Files with a .dcm extension win; when there are none,
// every file without an extension is a candidate.
func CollectFiles(dir string) ([]string, error) {
	var dcm, bare []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch ext := filepath.Ext(d.Name()); {
		case strings.EqualFold(ext, ".dcm"):
			dcm = append(dcm, path)
		case ext == "":
			bare = append(bare, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(dcm) > 0 {
		sort.Strings(dcm)
		return dcm, nil
	}
	sort.Strings(bare)
	return bare, nil
}

// GroupBySeries groups headers by SeriesInstanceUID. Headers without one
// share a single group.
func GroupBySeries(headers []*Header) map[string][]*Header {
	groups := make(map[string][]*Header)
	for _, h := range headers {
		uid := h.SeriesInstanceUID
		if uid == "" {
			uid = noSeriesUID
		}
		groups[uid] = append(groups[uid], h)
	}
	return groups
}

// LargestSeries returns the group with the most slices. Ties go to the group
// whose first slice was read first.
func LargestSeries(headers []*Header) []*Header {
	groups := GroupBySeries(headers)
	order := make(map[string]int, len(groups))
	for i, h := range headers {
		uid := h.SeriesInstanceUID
		if uid == "" {
			uid = noSeriesUID
		}
		if _, ok := order[uid]; !ok {
			order[uid] = i
		}
	}

	var best string
	for uid, g := range groups {
		if best == "" ||
			len(g) > len(groups[best]) ||
			(len(g) == len(groups[best]) && order[uid] < order[best]) {
			best = uid
		}
	}
	return groups[best]
}

// SortSlices orders slices by InstanceNumber when every slice has one, else
// by the z position when any slice has one, else leaves them as they are. It
// returns a new slice and the key used.
func SortSlices(headers []*Header) ([]*Header, string) {
	out := make([]*Header, len(headers))
	copy(out, headers)

	allInstance := len(out) > 0
	anyPosition := false
	for _, h := range out {
		if h.InstanceNumber == nil {
			allInstance = false
		}
		if h.HasPosition() {
			anyPosition = true
		}
	}

	switch {
	case allInstance:
		sort.SliceStable(out, func(i, j int) bool { return *out[i].InstanceNumber < *out[j].InstanceNumber })
		return out, SortInstanceNumber
	case anyPosition:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Z() < out[j].Z() })
		return out, SortImagePositionPatient
	default:
		return out, SortNone
	}
}

// ZSpacing returns the mean absolute gap between consecutive z positions,
// rounded to 4 decimals, when at least two slices carry a position. It falls
// back to the first slice's SliceThickness.
func ZSpacing(sorted []*Header) *float64 {
	if len(sorted) == 0 {
		return nil
	}
	if len(sorted) == 1 {
		return sorted[0].SliceThickness
	}

	var zs []float64
	for _, h := range sorted {
		if h.HasPosition() {
			zs = append(zs, h.Z())
		}
	}
	if len(zs) >= 2 {
		var sum float64
		for i := 0; i+1 < len(zs); i++ {
			gap := zs[i+1] - zs[i]
			if gap < 0 {
				gap = -gap
			}
			sum += gap
		}
		v := util.Round(sum/float64(len(zs)-1), 4)
		return &v
	}
	return sorted[0].SliceThickness
}

// SampleIndices picks at most max indices spread evenly over n items.
func SampleIndices(n, max int) []int {
	if n <= 0 {
		return nil
	}
	if max <= 0 || n <= max {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	step := float64(n) / float64(max)
	idx := make([]int, max)
	for i := range idx {
		idx[i] = int(float64(i) * step)
	}
	return idx
}
