package tsl2591

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand(t *testing.T) {
	assert.Equal(t, byte(0xA0), Command(TSL2591_REGISTER_ENABLE))
	assert.Equal(t, byte(0xA1), Command(TSL2591_REGISTER_CONTROL))
	assert.Equal(t, byte(0xB4), Command(TSL2591_REGISTER_CHAN0_LOW))
	assert.Equal(t, byte(0xB6), Command(TSL2591_REGISTER_CHAN1_LOW))
	assert.Equal(t, byte(0x13), enableOn)
}

func TestFieldEncoding(t *testing.T) {
	assert.Equal(t, byte(0x20), TSL2591_GAIN_HIGH.Field())
	assert.Equal(t, byte(0x20), TSL2591_INTEGRATIONTIME_300MS.Field())

	// AGAIN sits in bits 5:4 and ATIME in bits 2:0, so the two never collide.
	for _, g := range Gains {
		for _, it := range IntegrationTimes {
			b := ControlByte(it, g)
			assert.Equal(t, g.Field(), b&0x30, "%v %v", g, it)
			assert.Equal(t, it.Field()>>4, b&0x07, "%v %v", g, it)
		}
	}
	assert.Equal(t, byte(0x22), ControlByte(TSL2591_INTEGRATIONTIME_300MS, TSL2591_GAIN_HIGH))
	assert.Equal(t, byte(0x35), ControlByte(TSL2591_INTEGRATIONTIME_600MS, TSL2591_GAIN_MAX))
}

func TestIntegrationTime(t *testing.T) {
	for i, it := range IntegrationTimes {
		assert.True(t, it.Valid())
		assert.Equal(t, (i+1)*100, it.Millis())
		assert.Equal(t, byte(i<<4), it.Field())
	}
	assert.Equal(t, uint16(37888), TSL2591_INTEGRATIONTIME_100MS.MaxCount())
	assert.Equal(t, uint16(65535), TSL2591_INTEGRATIONTIME_600MS.MaxCount())
	assert.Equal(t, "300ms", TSL2591_INTEGRATIONTIME_300MS.String())

	assert.False(t, IntegrationTime(0x01).Valid())
	assert.Equal(t, "Unknown", IntegrationTime(0x01).String())

	assert.Equal(t, time.Second, TSL2591_INTEGRATIONTIME_100MS.SettleDelay())
	assert.InDelta(t, 2.92, TSL2591_INTEGRATIONTIME_200MS.SettleDelay().Seconds(), 1e-6)
	assert.InDelta(t, 10.6, TSL2591_INTEGRATIONTIME_600MS.SettleDelay().Seconds(), 1e-6)
}

func TestGain(t *testing.T) {
	want := []float64{1, 25, 428, 9876}
	for i, g := range Gains {
		assert.True(t, g.Valid())
		assert.Equal(t, want[i], g.Multiplier())
	}
	assert.False(t, Gain(0x08).Valid())
	assert.Equal(t, "High gain (428x)", TSL2591_GAIN_HIGH.String())
	assert.Equal(t, "Unknown", Gain(0x08).String())
}

func TestParseGain(t *testing.T) {
	cases := map[string]Gain{
		"low":    TSL2591_GAIN_LOW,
		"Medium": TSL2591_GAIN_MED,
		"med":    TSL2591_GAIN_MED,
		" HIGH ": TSL2591_GAIN_HIGH,
		"max":    TSL2591_GAIN_MAX,
		"9876x":  TSL2591_GAIN_MAX,
	}
	for in, want := range cases {
		got, err := ParseGain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseGain("ultra")
	assert.ErrorIs(t, err, ErrInvalidGain)
}

func TestParseIntegrationTime(t *testing.T) {
	for _, it := range IntegrationTimes {
		got, err := ParseIntegrationTime(it.String())
		require.NoError(t, err)
		assert.Equal(t, it, got)
	}
	got, err := ParseIntegrationTime("400")
	require.NoError(t, err)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_400MS, got)

	for _, bad := range []string{"", "150ms", "700ms", "fast"} {
		_, err := ParseIntegrationTime(bad)
		assert.ErrorIs(t, err, ErrInvalidIntegrationTime, bad)
	}
}
