package vision

import (
	"encoding/json"
	"os"

	"github.com/mrsinham/lesiontrack/internal/apperr"
)

// LoadAnnotations reads an annotation JSON file.
func LoadAnnotations(path string) ([]Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "cannot read annotations").WithPath(path)
	}
	anns, err := ParseAnnotations(data)
	if err != nil {
		return nil, err
	}
	return anns, nil
}

// ParseAnnotations decodes an annotation array.
func ParseAnnotations(data []byte) ([]Annotation, error) {
	var anns []Annotation
	if err := json.Unmarshal(data, &anns); err != nil {
		return nil, apperr.New(apperr.MeasurementsRequired, "invalid annotations JSON: %v", err)
	}
	return anns, nil
}

// groupByStudy buckets lesions by study id. Lesions inherit the series of
// their annotation unless they name their own. Annotations repeating a study
// id add to the same bucket.
func groupByStudy(anns []Annotation) map[string][]LesionAnnotation {
	out := make(map[string][]LesionAnnotation)
	for _, a := range anns {
		key := a.StudyID
		if key == "" {
			key = DefaultStudyKey
		}
		for _, l := range a.Lesions {
			if l.SeriesUID == "" {
				l.SeriesUID = a.SeriesUID
			}
			out[key] = append(out[key], l)
		}
	}
	return out
}
