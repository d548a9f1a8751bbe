package tsl2591

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T, gain Gain, timing IntegrationTime) (*TSL2591, *fakeBus) {
	t.Helper()
	bus := newFakeBus()
	tsl, err := NewTSL2591(bus, gain, timing)
	require.NoError(t, err)
	tsl.Sleep = bus.sleep
	bus.reset()
	return tsl, bus
}

func TestNewTSL2591(t *testing.T) {
	bus := newFakeBus()
	tsl, err := NewTSL2591(bus, TSL2591_GAIN_HIGH, TSL2591_INTEGRATIONTIME_300MS)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"enable 13", "control 22", "disable",
		"enable 13", "control 22", "disable",
		"disable",
	}, bus.ops)
	s := tsl.Settings()
	assert.False(t, s.Enabled)
	assert.Equal(t, TSL2591_GAIN_HIGH, s.Gain)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_300MS, s.Timing)
	assert.Equal(t, TSL2591_MAX_COUNT, s.MaxCount)
	assert.Equal(t, TSL2591_ADDR, tsl.Addr)
}

func TestNewTSL2591RejectsInvalidSettings(t *testing.T) {
	bus := newFakeBus()

	_, err := NewTSL2591(bus, Gain(0x40), TSL2591_INTEGRATIONTIME_100MS)
	assert.ErrorIs(t, err, ErrInvalidGain)

	_, err = NewTSL2591(bus, TSL2591_GAIN_LOW, IntegrationTime(0x60))
	assert.ErrorIs(t, err, ErrInvalidIntegrationTime)

	assert.Empty(t, bus.ops, "no register may be written for invalid settings")
}

func TestSetTimingLeavesDeviceDisabled(t *testing.T) {
	for _, gain := range Gains {
		for _, timing := range IntegrationTimes {
			tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
			require.NoError(t, tsl.Enable())

			require.NoError(t, tsl.SetGain(gain))
			require.NoError(t, tsl.SetTiming(timing))

			s := tsl.Settings()
			assert.False(t, s.Enabled)
			assert.False(t, bus.enableOn)
			assert.Equal(t, gain, s.Gain)
			assert.Equal(t, timing, s.Timing)
			if timing == TSL2591_INTEGRATIONTIME_100MS {
				assert.Equal(t, uint16(37888), s.MaxCount)
			} else {
				assert.Equal(t, uint16(65535), s.MaxCount)
			}
			assert.Equal(t, ControlByte(timing, gain), bus.control[len(bus.control)-1])
		}
	}
}

func TestSetGainSequence(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_200MS)

	require.NoError(t, tsl.SetGain(TSL2591_GAIN_MAX))
	assert.Equal(t, []string{"enable 13", "control 31", "disable"}, bus.ops)
}

func TestSetterRejectsInvalidValues(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_400MS)

	assert.ErrorIs(t, tsl.SetGain(Gain(0x05)), ErrInvalidGain)
	assert.ErrorIs(t, tsl.SetTiming(IntegrationTime(0x01)), ErrInvalidIntegrationTime)
	assert.Empty(t, bus.ops)

	s := tsl.Settings()
	assert.Equal(t, TSL2591_GAIN_MED, s.Gain)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_400MS, s.Timing)
}

func TestSetTimingControlWriteFailure(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	bus.failCmd[Command(TSL2591_REGISTER_CONTROL)] = errors.New("nack")

	err := tsl.SetTiming(TSL2591_INTEGRATIONTIME_600MS)
	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "write", be.Op)
	assert.Equal(t, byte(0xA1), be.Command)

	assert.Equal(t, []string{"enable 13", "fail-write a1", "disable"}, bus.ops)
	s := tsl.Settings()
	assert.Equal(t, TSL2591_INTEGRATIONTIME_100MS, s.Timing)
	assert.Equal(t, TSL2591_MAX_COUNT_100MS, s.MaxCount)
	assert.False(t, s.Enabled)
}

func TestSampleSequence(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	bus.queue(5000, 500)

	lux, err := tsl.Sample()
	require.NoError(t, err)

	want, err := CalculateLux(5000, 500, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, err)
	assert.Equal(t, want, lux)
	assert.Equal(t, []string{"enable 13", "sleep 1s", "read b4", "read b6", "disable"}, bus.ops)
	assert.False(t, tsl.Settings().Enabled)
}

func TestSampleDoesNotTrustPowerState(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, tsl.Enable())
	bus.reset()
	bus.queue(100, 10)
	bus.queue(200, 20)

	_, err := tsl.Sample()
	require.NoError(t, err)
	_, err = tsl.Sample()
	require.NoError(t, err)

	cycle := []string{"enable 13", "sleep 1s", "read b4", "read b6", "disable"}
	assert.Equal(t, append(append([]string{}, cycle...), cycle...), bus.ops)
}

func TestSampleSettleDelayUsesField(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, tsl.SetTiming(TSL2591_INTEGRATIONTIME_500MS))
	bus.reset()

	var slept []float64
	tsl.Sleep = func(d time.Duration) { slept = append(slept, d.Seconds()) }
	_, err := tsl.Sample()
	require.NoError(t, err)

	require.Len(t, slept, 1)
	assert.InDelta(t, 0.120*0x40+1, slept[0], 1e-6)
}

func TestSampleSaturated(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_MAX, TSL2591_INTEGRATIONTIME_100MS)
	bus.queue(37888, 10)

	_, err := tsl.Sample()
	assert.ErrorIs(t, err, ErrSaturated)

	var se *SaturationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, uint16(37888), se.Full)
	assert.Equal(t, uint16(37888), se.MaxCount)
	assert.False(t, tsl.Settings().Enabled)
}

func TestSampleReadFailureDisables(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	bus.failCmd[Command(TSL2591_REGISTER_CHAN1_LOW)] = errors.New("timeout")

	r, err := tsl.Read()
	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "read", be.Op)
	assert.EqualError(t, be.Unwrap(), "timeout")
	assert.Equal(t, Reading{}, r)
	assert.Equal(t, []string{"enable 13", "sleep 1s", "read b4", "fail-read b6", "disable"}, bus.ops)
}

func TestSampleEnableFailure(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	bus.failCmd[Command(TSL2591_REGISTER_ENABLE)] = errors.New("nack")

	_, err := tsl.Sample()
	var be *BusError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, []string{"fail-write a0"}, bus.ops)
}

func TestRead(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_200MS)
	bus.queue(1200, 300)

	r, err := tsl.Read()
	require.NoError(t, err)
	assert.Equal(t, RawSample{Full: 1200, IR: 300}, r.RawSample)
	assert.Equal(t, TSL2591_GAIN_MED, r.Gain)
	assert.Equal(t, TSL2591_INTEGRATIONTIME_200MS, r.Timing)
	want, _ := CalculateLux(1200, 300, TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_200MS)
	assert.Equal(t, want, r.Lux)
}

func TestFullLuminosity(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	bus.queue(40000, 100)

	// saturated counts are still returned raw
	s, err := tsl.FullLuminosity()
	require.NoError(t, err)
	assert.Equal(t, RawSample{Full: 40000, IR: 100}, s)
}

func TestReduceSensitivity(t *testing.T) {
	tsl, _ := newTestDevice(t, TSL2591_GAIN_HIGH, TSL2591_INTEGRATIONTIME_300MS)

	steps := []struct {
		gain   Gain
		timing IntegrationTime
	}{
		{TSL2591_GAIN_MED, TSL2591_INTEGRATIONTIME_300MS},
		{TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_300MS},
		{TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_200MS},
		{TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS},
	}
	for _, step := range steps {
		require.NoError(t, tsl.ReduceSensitivity())
		s := tsl.Settings()
		assert.Equal(t, step.gain, s.Gain)
		assert.Equal(t, step.timing, s.Timing)
		assert.Equal(t, step.timing.MaxCount(), s.MaxCount)
		assert.False(t, s.Enabled)
	}
	assert.ErrorIs(t, tsl.ReduceSensitivity(), ErrMinimumSensitivity)
}

func TestClose(t *testing.T) {
	tsl, bus := newTestDevice(t, TSL2591_GAIN_LOW, TSL2591_INTEGRATIONTIME_100MS)
	require.NoError(t, tsl.Close())
	assert.True(t, bus.closed)
}
