package lesion

// Measurement is one lesion at one exam. It is created by the pixel to mm
// converter or by a timeline feed and is not modified afterwards.
type Measurement struct {
	LesionID      string   `json:"lesion_id"`
	SliceInstance *int     `json:"slice_instance"`
	LongAxisPx    *float64 `json:"long_axis_px"`
	ShortAxisPx   *float64 `json:"short_axis_px"`
	LongAxisMM    *float64 `json:"long_axis_mm"`
	ShortAxisMM   *float64 `json:"short_axis_mm"`
	SeriesUID     string   `json:"series_uid"`
}

// LongAxes returns the long axes of the measurements that have one, in order.
func LongAxes(ms []Measurement) []float64 {
	out := make([]float64, 0, len(ms))
	for _, m := range ms {
		if m.LongAxisMM != nil {
			out = append(out, *m.LongAxisMM)
		}
	}
	return out
}
