package analysis

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/lesiontrack/internal/util"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultThresholds(), zerolog.Nop())
}

func TestCompare_Scenarios(t *testing.T) {
	e := newTestEngine()

	t.Run("progression wins over stable", func(t *testing.T) {
		deltas, out := e.Compare([]float64{10.0, 8.0}, []float64{18.0, 7.5})
		require.Len(t, deltas, 2)
		assert.Equal(t, 8.0, *deltas[0].DeltaMM)
		assert.Equal(t, 80.0, *deltas[0].DeltaPct)
		assert.Equal(t, StatusProgression, deltas[0].Status)
		assert.Equal(t, -0.5, *deltas[1].DeltaMM)
		assert.Equal(t, StatusStable, deltas[1].Status)
		assert.Equal(t, StatusProgression, out.Status)
		assert.Equal(t, []int{0}, out.ProgressionIndices)
		assert.Equal(t, "progression: lesion(s) [0] increased >= 20.0% AND >= 5.0 mm", out.Rule)
	})

	t.Run("response", func(t *testing.T) {
		deltas, out := e.Compare([]float64{20.0}, []float64{12.0})
		require.Len(t, deltas, 1)
		assert.Equal(t, -8.0, *deltas[0].DeltaMM)
		assert.Equal(t, -40.0, *deltas[0].DeltaPct)
		assert.Equal(t, StatusResponse, out.Status)
		assert.Equal(t, []int{0}, out.ResponseIndices)
		assert.Equal(t, "response: lesion(s) [0] decreased >= 30.0%", out.Rule)
	})

	t.Run("empty is unknown", func(t *testing.T) {
		deltas, out := e.Compare(nil, nil)
		assert.Empty(t, deltas)
		assert.NotNil(t, deltas)
		assert.Equal(t, StatusUnknown, out.Status)
		assert.Equal(t, ruleNoDeltas, out.Rule)
	})
}

func TestClassifyLesion_Boundaries(t *testing.T) {
	e := newTestEngine()
	tests := []struct {
		name     string
		baseline float64
		last     float64
		want     Status
	}{
		{"exactly 5 mm and 20 percent", 25, 30, StatusProgression},
		{"just under both thresholds", 24.95, 29.94, StatusStable},
		{"20 percent but under 5 mm", 10, 12, StatusStable},
		{"5 mm but under 20 percent", 50, 55, StatusStable},
		{"exactly minus 30 percent", 10, 7, StatusResponse},
		{"minus 29.9 percent", 10, 7.01, StatusStable},
		{"unchanged", 12, 12, StatusStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas := e.CompareSizes([]float64{tt.baseline}, []float64{tt.last})
			require.Len(t, deltas, 1)
			assert.Equal(t, tt.want, deltas[0].Status)
		})
	}
}

func TestClassifyLesion_MissingDeltaIsNew(t *testing.T) {
	e := newTestEngine()
	assert.Equal(t, StatusNew, e.ClassifyLesion(nil, util.Ptr(1.0)))
	assert.Equal(t, StatusNew, e.ClassifyLesion(util.Ptr(1.0), nil))
}

func TestCompareSizes_UnevenLists(t *testing.T) {
	e := newTestEngine()

	deltas := e.CompareSizes([]float64{10}, []float64{10, 15})
	require.Len(t, deltas, 2)
	assert.Equal(t, StatusNew, deltas[1].Status)
	assert.Nil(t, deltas[1].BaselineMM)
	assert.Nil(t, deltas[1].DeltaMM)
	assert.Equal(t, NoteAbsentAtBaseline, deltas[1].Note)

	deltas = e.CompareSizes([]float64{10, 15}, []float64{10})
	require.Len(t, deltas, 2)
	assert.Equal(t, StatusNew, deltas[1].Status)
	assert.Nil(t, deltas[1].LastMM)
	assert.Equal(t, NoteAbsentAtLast, deltas[1].Note)
}

func TestCompareSizes_ZeroBaseline(t *testing.T) {
	deltas := newTestEngine().CompareSizes([]float64{0}, []float64{6})
	require.Len(t, deltas, 1)
	assert.Equal(t, 6.0, *deltas[0].DeltaMM)
	assert.Nil(t, deltas[0].DeltaPct)
	assert.Equal(t, StatusNew, deltas[0].Status)
	assert.Empty(t, deltas[0].Note)
}

func TestReduce_Precedence(t *testing.T) {
	e := newTestEngine()
	deltas := []LesionDelta{
		{LesionIndex: 0, Status: StatusResponse},
		{LesionIndex: 1, Status: StatusProgression},
		{LesionIndex: 2, Status: StatusNew},
		{LesionIndex: 3, Status: StatusProgression},
	}
	out := e.Reduce(deltas)
	assert.Equal(t, StatusProgression, out.Status)
	assert.Equal(t, []int{1, 3}, out.ProgressionIndices)
	assert.Equal(t, []int{0}, out.ResponseIndices)

	out = e.Reduce([]LesionDelta{{Status: StatusNew}, {LesionIndex: 1, Status: StatusStable}})
	assert.Equal(t, StatusStable, out.Status)
	assert.Equal(t, ruleStable, out.Rule)
	assert.Empty(t, out.ProgressionIndices)
}

func TestReduce_CustomThresholdsInRule(t *testing.T) {
	e := NewEngine(Thresholds{ProgressionPct: 12.5, ProgressionAbsMM: 3, ResponsePct: 50}, zerolog.Nop())
	_, out := e.Compare([]float64{10, 20}, []float64{14, 9})
	assert.Equal(t, StatusProgression, out.Status)
	assert.Equal(t, "progression: lesion(s) [0] increased >= 12.5% AND >= 3.0 mm", out.Rule)
	assert.Equal(t, []int{1}, out.ResponseIndices)
}

func TestCompareByID(t *testing.T) {
	e := newTestEngine()
	deltas := e.CompareByID(
		[]IdentifiedSize{{"A", 10}, {"B", 20}},
		[]IdentifiedSize{{"C", 5}, {"B", 10}},
	)
	require.Len(t, deltas, 3)

	assert.Equal(t, "A", deltas[0].LesionID)
	assert.Equal(t, StatusNew, deltas[0].Status)
	assert.Equal(t, NoteAbsentAtLast, deltas[0].Note)

	assert.Equal(t, "B", deltas[1].LesionID)
	assert.Equal(t, 1, deltas[1].LesionIndex)
	assert.Equal(t, -50.0, *deltas[1].DeltaPct)
	assert.Equal(t, StatusResponse, deltas[1].Status)

	assert.Equal(t, "C", deltas[2].LesionID)
	assert.Equal(t, NoteAbsentAtBaseline, deltas[2].Note)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{ProgressionPct: 0, ProgressionAbsMM: 5, ResponsePct: 30}.Validate())
	assert.Error(t, Thresholds{ProgressionPct: 20, ProgressionAbsMM: -1, ResponsePct: 30}.Validate())
	assert.Error(t, Thresholds{ProgressionPct: 20, ProgressionAbsMM: 5}.Validate())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "20.0", formatFloat(20))
	assert.Equal(t, "12.5", formatFloat(12.5))
	assert.Equal(t, "[]", formatIndices(nil))
	assert.Equal(t, "[0, 2]", formatIndices([]int{0, 2}))
}
