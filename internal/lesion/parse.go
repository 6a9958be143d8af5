// Package lesion parses lesion sizes and pseudo-report text from messy
// timeline fields and defines the per-exam lesion measurement record.
package lesion

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	separatorRe  = regexp.MustCompile(`[,;|/\\]+`)
	unitSuffixRe = regexp.MustCompile(`[a-zA-Z°]+$`)
)

// ParseSizes extracts lesion sizes in mm from a raw field value.
//
// Numeric scalars yield a single size. Strings may hold several numbers
// separated by commas, semicolons, pipes, slashes, backslashes, whitespace or
// newlines, each optionally followed by a unit token such as "mm" or a degree
// sign. Tokens that are not numbers are dropped, as are negative values.
// Lists are parsed element by element. The result is sorted ascending and
// keeps duplicates.
func ParseSizes(value any) []float64 {
	var sizes []float64

	switch v := value.(type) {
	case nil:
		return []float64{}
	case float64:
		sizes = appendSize(sizes, v)
	case float32:
		sizes = appendSize(sizes, float64(v))
	case int:
		sizes = appendSize(sizes, float64(v))
	case int64:
		sizes = appendSize(sizes, float64(v))
	case int32:
		sizes = appendSize(sizes, float64(v))
	case uint:
		sizes = appendSize(sizes, float64(v))
	case json.Number:
		sizes = append(sizes, ParseSizesString(v.String())...)
	case string:
		sizes = append(sizes, ParseSizesString(v)...)
	case []float64:
		for _, f := range v {
			sizes = appendSize(sizes, f)
		}
	case []any:
		for _, item := range v {
			sizes = append(sizes, ParseSizes(item)...)
		}
	default:
		sizes = append(sizes, ParseSizesString(fmt.Sprint(v))...)
	}

	if sizes == nil {
		return []float64{}
	}
	sort.Float64s(sizes)
	return sizes
}

// ParseSizesString is ParseSizes for text input.
func ParseSizesString(text string) []float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return []float64{}
	}

	text = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(text)
	normalized := separatorRe.ReplaceAllString(text, " ")

	sizes := []float64{}
	for _, token := range strings.Fields(normalized) {
		clean := strings.Trim(unitSuffixRe.ReplaceAllString(token, ""), " .")
		if clean == "" {
			continue
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		sizes = appendSize(sizes, f)
	}

	sort.Float64s(sizes)
	return sizes
}

// appendSize keeps finite, non-negative sizes. A leading minus in free text
// is a dash, not a signed measurement.
func appendSize(sizes []float64, f float64) []float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return sizes
	}
	return append(sizes, f)
}
