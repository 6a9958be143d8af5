package analysis

import (
	"slices"
	"time"

	"github.com/mrsinham/lesiontrack/internal/util"
)

// SumDiameters returns the sum of sizes rounded to 2 decimals, or nil for an
// empty list.
func SumDiameters(sizes []float64) *float64 {
	if len(sizes) == 0 {
		return nil
	}
	var sum float64
	for _, s := range sizes {
		sum += s
	}
	return util.Ptr(util.Round(sum, 2))
}

// DominantLesion returns the largest size, or nil for an empty list.
func DominantLesion(sizes []float64) *float64 {
	if len(sizes) == 0 {
		return nil
	}
	return util.Ptr(slices.Max(sizes))
}

// PctDelta returns the percent change from baseline to current rounded to 1
// decimal. It is nil when either value is missing or baseline is zero.
func PctDelta(baseline, current *float64) *float64 {
	if baseline == nil || current == nil || *baseline == 0 {
		return nil
	}
	return util.Ptr(util.Round((*current-*baseline) / *baseline * 100, 1))
}

// GrowthRate returns the dominant lesion growth in mm/day rounded to 4
// decimals. Same-day exams and missing values yield nil.
func GrowthRate(dominantBaseline, dominantCurrent *float64, days *int) *float64 {
	if dominantBaseline == nil || dominantCurrent == nil || days == nil || *days == 0 {
		return nil
	}
	return util.Ptr(util.Round((*dominantCurrent-*dominantBaseline)/float64(*days), 4))
}

// DaysBetween returns the day count from d1 to d2, both ISO dates. It is nil
// when either date is missing or malformed.
func DaysBetween(d1, d2 *string) *int {
	if d1 == nil || d2 == nil || *d1 == "" || *d2 == "" {
		return nil
	}
	t1, err := time.Parse(time.DateOnly, *d1)
	if err != nil {
		return nil
	}
	t2, err := time.Parse(time.DateOnly, *d2)
	if err != nil {
		return nil
	}
	return util.Ptr(int(t2.Sub(t1).Hours() / 24))
}

// DataCompleteness scores 0 to 100 how complete a timeline is. Every exam
// earns one point each for a study date, a non-empty lesion list and at least
// one non-empty report section.
func DataCompleteness(exams []Exam) float64 {
	if len(exams) == 0 {
		return 0.0
	}
	total := 0
	for _, ex := range exams {
		if ex.StudyDate != nil && *ex.StudyDate != "" {
			total++
		}
		if len(ex.LesionSizesMM) > 0 {
			total++
		}
		if ex.ReportSections.HasContent() {
			total++
		}
	}
	return util.Round(float64(total)/float64(len(exams)*3)*100, 1)
}

func buildKPI(baseline, last []float64, days *int, completeness float64) KPI {
	sumBase, sumCurr := SumDiameters(baseline), SumDiameters(last)
	domBase, domCurr := DominantLesion(baseline), DominantLesion(last)
	return KPI{
		SumDiametersBaselineMM:   sumBase,
		SumDiametersCurrentMM:    sumCurr,
		SumDiametersDeltaPct:     PctDelta(sumBase, sumCurr),
		DominantLesionBaselineMM: domBase,
		DominantLesionCurrentMM:  domCurr,
		DominantLesionDeltaPct:   PctDelta(domBase, domCurr),
		LesionCountBaseline:      len(baseline),
		LesionCountCurrent:       len(last),
		LesionCountDelta:         len(last) - len(baseline),
		GrowthRateMMPerDay:       GrowthRate(domBase, domCurr, days),
		DataCompletenessScore:    completeness,
	}
}
