package tsl2591

import "math"

// RawSample is one pair of channel readings.
type RawSample struct {
	Full uint16 // channel 0, full spectrum
	IR   uint16 // channel 1, infrared only
}

// Visible is the full spectrum count minus the infrared count, floored at zero.
func (s RawSample) Visible() uint16 {
	if s.IR >= s.Full {
		return 0
	}
	return s.Full - s.IR
}

// Normalized returns the selected spectrum as a fraction of the 16-bit range.
func (s RawSample) Normalized(spectrum Spectrum) float64 {
	switch spectrum {
	case TSL2591_VISIBLE:
		return float64(s.Visible()) / 0xFFFF
	case TSL2591_INFRARED:
		return float64(s.IR) / 0xFFFF
	case TSL2591_FULLSPECTRUM:
		return float64(s.Full) / 0xFFFF
	default:
		return 0
	}
}

// CalculateLux converts a channel pair into lux for the given settings.
// Both of the datasheet's linearisations are evaluated and the larger wins.
func CalculateLux(full, ir uint16, gain Gain, timing IntegrationTime) (float64, error) {
	if !gain.Valid() {
		return 0, ErrInvalidGain
	}
	if !timing.Valid() {
		return 0, ErrInvalidIntegrationTime
	}

	ceiling := timing.MaxCount()
	if full >= ceiling || ir >= ceiling {
		return 0, &SaturationError{Full: full, IR: ir, MaxCount: ceiling}
	}

	cpl := (float64(timing.Millis()) * gain.Multiplier()) / TSL2591_LUX_DF
	lux1 := (float64(full) - TSL2591_LUX_COEFB*float64(ir)) / cpl
	lux2 := (TSL2591_LUX_COEFC*float64(full) - TSL2591_LUX_COEFD*float64(ir)) / cpl
	return math.Max(lux1, lux2), nil
}
