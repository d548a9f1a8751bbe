package tsl2591

import (
	"fmt"
	"strings"
	"time"
)

const (
	TSL2591_ADDR        byte = 0x29 ///< Default I2C address
	TSL2591_COMMAND_BIT byte = 0xA0 ///< 1010 0000: bits 7 and 5 for 'command normal'

	TSL2591_ENABLE_POWEROFF byte = 0x00 ///< Flag for ENABLE register to disable
	TSL2591_ENABLE_POWERON  byte = 0x01 ///< Flag for ENABLE register to enable
	TSL2591_ENABLE_AEN      byte = 0x02 ///< ALS Enable. This field activates ALS function. Writing a one activates the ALS. Writing a zero disables the ALS.
	TSL2591_ENABLE_AIEN     byte = 0x10 ///< ALS Interrupt Enable. When asserted permits ALS interrupts to be generated, subject to the persist filter.

	TSL2591_LUX_DF    float64 = 408.0 ///< Lux cooefficient
	TSL2591_LUX_COEFB float64 = 1.64  ///< CH0 coefficient
	TSL2591_LUX_COEFC float64 = 0.59  ///< CH1 coefficient A
	TSL2591_LUX_COEFD float64 = 0.86  ///< CH2 coefficient B

	TSL2591_MAX_COUNT_100MS uint16 = 37888 ///< ADC ceiling when integrating for 100ms
	TSL2591_MAX_COUNT       uint16 = 65535 ///< ADC ceiling for every other integration time
)

// TSL2591 Register map, only the registers the driver touches.
const (
	TSL2591_REGISTER_ENABLE    byte = 0x00 // Enable register
	TSL2591_REGISTER_CONTROL   byte = 0x01 // ALS gain and integration time configuration
	TSL2591_REGISTER_CHAN0_LOW byte = 0x14 // Channel 0 data, low byte
	TSL2591_REGISTER_CHAN1_LOW byte = 0x16 // Channel 1 data, low byte
)

// Command composes the command byte for a register access.
func Command(register byte) byte {
	return TSL2591_COMMAND_BIT | register
}

// The value written to the ENABLE register to power the ALS up.
const enableOn = TSL2591_ENABLE_POWERON | TSL2591_ENABLE_AEN | TSL2591_ENABLE_AIEN

// IntegrationTime is the ALS integration time setting.
type IntegrationTime byte

// Constants for adjusting the sensor integration timing
const (
	TSL2591_INTEGRATIONTIME_100MS IntegrationTime = 0x00 // 100 millis
	TSL2591_INTEGRATIONTIME_200MS IntegrationTime = 0x10 // 200 millis
	TSL2591_INTEGRATIONTIME_300MS IntegrationTime = 0x20 // 300 millis
	TSL2591_INTEGRATIONTIME_400MS IntegrationTime = 0x30 // 400 millis
	TSL2591_INTEGRATIONTIME_500MS IntegrationTime = 0x40 // 500 millis
	TSL2591_INTEGRATIONTIME_600MS IntegrationTime = 0x50 // 600 millis
)

// IntegrationTimes lists every integration time, shortest first.
var IntegrationTimes = []IntegrationTime{
	TSL2591_INTEGRATIONTIME_100MS,
	TSL2591_INTEGRATIONTIME_200MS,
	TSL2591_INTEGRATIONTIME_300MS,
	TSL2591_INTEGRATIONTIME_400MS,
	TSL2591_INTEGRATIONTIME_500MS,
	TSL2591_INTEGRATIONTIME_600MS,
}

// Valid reports whether t is one of the six supported settings.
func (t IntegrationTime) Valid() bool {
	return t.Millis() != 0
}

// Field is the raw setting value. It also drives the settle delay.
func (t IntegrationTime) Field() byte {
	return byte(t)
}

// Millis is the nominal integration duration in milliseconds, 0 if t is invalid.
func (t IntegrationTime) Millis() int {
	switch t {
	case TSL2591_INTEGRATIONTIME_100MS:
		return 100
	case TSL2591_INTEGRATIONTIME_200MS:
		return 200
	case TSL2591_INTEGRATIONTIME_300MS:
		return 300
	case TSL2591_INTEGRATIONTIME_400MS:
		return 400
	case TSL2591_INTEGRATIONTIME_500MS:
		return 500
	case TSL2591_INTEGRATIONTIME_600MS:
		return 600
	default:
		return 0
	}
}

// MaxCount is the channel count at which a reading is considered saturated.
func (t IntegrationTime) MaxCount() uint16 {
	if t == TSL2591_INTEGRATIONTIME_100MS {
		return TSL2591_MAX_COUNT_100MS
	}
	return TSL2591_MAX_COUNT
}

// SettleDelay is how long to wait after enabling before the channel
// registers hold a complete cycle: 0.120s per unit of Field, plus one second.
func (t IntegrationTime) SettleDelay() time.Duration {
	return time.Duration((0.120*float64(t.Field()) + 1) * float64(time.Second))
}

// atime is the ATIME value as it sits in bits 2:0 of the CONTROL register.
func (t IntegrationTime) atime() byte {
	return byte(t) >> 4
}

func (t IntegrationTime) String() string {
	if !t.Valid() {
		return "Unknown"
	}
	return fmt.Sprintf("%dms", t.Millis())
}

// ParseIntegrationTime accepts "100ms".."600ms", with or without the unit.
func ParseIntegrationTime(s string) (IntegrationTime, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "ms")
	for _, t := range IntegrationTimes {
		if v == fmt.Sprintf("%d", t.Millis()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidIntegrationTime, s)
}

// Gain is the ALS analog gain setting.
type Gain byte

// Constants for adjusting the sensor gain
const (
	TSL2591_GAIN_LOW  Gain = 0x00 /// low gain (1x)
	TSL2591_GAIN_MED  Gain = 0x10 /// medium gain (25x)
	TSL2591_GAIN_HIGH Gain = 0x20 /// high gain (428x)
	TSL2591_GAIN_MAX  Gain = 0x30 /// max gain (9876x)
)

// Gains lists every gain, least sensitive first.
var Gains = []Gain{
	TSL2591_GAIN_LOW,
	TSL2591_GAIN_MED,
	TSL2591_GAIN_HIGH,
	TSL2591_GAIN_MAX,
}

func (g Gain) Valid() bool {
	return g.Multiplier() != 0
}

// Field is the AGAIN value as it sits in bits 5:4 of the CONTROL register.
func (g Gain) Field() byte {
	return byte(g)
}

// Multiplier is the amplification factor used by the lux calculation.
func (g Gain) Multiplier() float64 {
	switch g {
	case TSL2591_GAIN_LOW:
		return 1
	case TSL2591_GAIN_MED:
		return 25
	case TSL2591_GAIN_HIGH:
		return 428
	case TSL2591_GAIN_MAX:
		return 9876
	default:
		return 0
	}
}

func (g Gain) String() string {
	switch g {
	case TSL2591_GAIN_LOW:
		return "Low gain (1x)"
	case TSL2591_GAIN_MED:
		return "Medium gain (25x)"
	case TSL2591_GAIN_HIGH:
		return "High gain (428x)"
	case TSL2591_GAIN_MAX:
		return "Max gain (9876x)"
	default:
		return "Unknown"
	}
}

// ParseGain accepts low, medium (or med), high and max, case-insensitive.
func ParseGain(s string) (Gain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "1x":
		return TSL2591_GAIN_LOW, nil
	case "medium", "med", "25x":
		return TSL2591_GAIN_MED, nil
	case "high", "428x":
		return TSL2591_GAIN_HIGH, nil
	case "max", "maximum", "9876x":
		return TSL2591_GAIN_MAX, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGain, s)
}

// ControlByte packs an integration time and gain into one CONTROL register value.
func ControlByte(t IntegrationTime, g Gain) byte {
	return t.atime() | g.Field()
}

// Spectrum selects a channel combination for Normalized.
type Spectrum byte

const (
	TSL2591_FULLSPECTRUM Spectrum = 0 ///< channel 0
	TSL2591_INFRARED     Spectrum = 1 ///< channel 1
	TSL2591_VISIBLE      Spectrum = 2 ///< channel 0 - channel 1
)
