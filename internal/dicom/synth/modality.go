package synth

// pixelConfig describes how pixels of a modality are stored.
type pixelConfig struct {
	BitsAllocated       int
	BitsStored          int
	HighBit             int
	PixelRepresentation int // 0 = unsigned, 1 = signed
	MinValue            int
	MaxValue            int
	BaseValue           int
}

type modalityProfile struct {
	sopClassUID string
	pixels      pixelConfig
	// rescale is written as RescaleIntercept/RescaleSlope when set.
	rescale *[2]float64
	window  [2]float64
}

func profileFor(m Modality) modalityProfile {
	switch m {
	case CT:
		return modalityProfile{
			sopClassUID: "1.2.840.10008.5.1.4.1.1.2",
			pixels: pixelConfig{
				BitsAllocated: 16, BitsStored: 16, HighBit: 15, PixelRepresentation: 1,
				MinValue: -1024, MaxValue: 3071, BaseValue: 1024,
			},
			rescale: &[2]float64{-1024, 1},
			window:  [2]float64{40, 400},
		}
	case SR:
		// Basic Text SR: no pixel module at all.
		return modalityProfile{sopClassUID: "1.2.840.10008.5.1.4.1.1.88.11"}
	default:
		return modalityProfile{
			sopClassUID: "1.2.840.10008.5.1.4.1.1.4",
			pixels: pixelConfig{
				BitsAllocated: 16, BitsStored: 12, HighBit: 11, PixelRepresentation: 0,
				MinValue: 0, MaxValue: 4095, BaseValue: 2048,
			},
			window: [2]float64{2048, 4096},
		}
	}
}
