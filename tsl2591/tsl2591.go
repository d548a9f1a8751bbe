package tsl2591

/*
 * tsl2591 - Package for interacting with TSL2591 lux sensors.
 *
 * Ref:
 * https://github.com/adafruit/Adafruit_TSL2591_Library
 * https://docs.circuitpython.org/projects/tsl2591/en/latest/
 * https://ams.com/tsl25911#tab/documents
 *
 */

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var l *logrus.Logger

func init() {
	l = logrus.New()
	l.Formatter = &logrus.JSONFormatter{}
	l.SetOutput(os.Stdout)
	// Set the log level
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
}

// SetLogger replaces the package logger.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		l = logger
	}
}

// TSL2591 drives one sensor. The integration time, gain and derived
// saturation ceiling only change together, under the driver lock.
type TSL2591 struct {
	Addr byte
	Bus  Bus
	// Sleep blocks for the settle delay. Defaults to time.Sleep.
	Sleep func(time.Duration)

	enabled  bool
	timing   IntegrationTime
	gain     Gain
	maxCount uint16
	mu       sync.Mutex
}

// Settings is a snapshot of the driver state.
type Settings struct {
	Enabled  bool
	Timing   IntegrationTime
	Gain     Gain
	MaxCount uint16
}

// Reading is the outcome of one sampling cycle.
type Reading struct {
	RawSample
	Lux    float64
	Gain   Gain
	Timing IntegrationTime
}

// Build a driver on bus, write the requested gain/timing and leave the sensor disabled.
func NewTSL2591(bus Bus, gain Gain, timing IntegrationTime) (*TSL2591, error) {
	if !gain.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidGain, byte(gain))
	}
	if !timing.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidIntegrationTime, byte(timing))
	}
	tsl := &TSL2591{
		Addr:     TSL2591_ADDR,
		Bus:      bus,
		Sleep:    time.Sleep,
		timing:   timing,
		gain:     gain,
		maxCount: timing.MaxCount(),
	}
	if err := tsl.SetTiming(timing); err != nil {
		return nil, fmt.Errorf("Failed to set timing: %w", err)
	}
	if err := tsl.SetGain(gain); err != nil {
		return nil, fmt.Errorf("Failed to set gain: %w", err)
	}
	if err := tsl.Disable(); err != nil {
		return nil, err
	}
	return tsl, nil
}

// Connect to a TSL2591 on the i2c character device at path & set gain/timing
func Open(path string, gain Gain, timing IntegrationTime) (*TSL2591, error) {
	bus := OpenI2CBus(path)
	tsl, err := NewTSL2591(bus, gain, timing)
	if err != nil {
		bus.Close()
		return nil, err
	}
	return tsl, nil
}

// Close releases the bus.
func (tsl *TSL2591) Close() error {
	return tsl.Bus.Close()
}

func (tsl *TSL2591) Settings() Settings {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()
	return Settings{
		Enabled:  tsl.enabled,
		Timing:   tsl.timing,
		Gain:     tsl.gain,
		MaxCount: tsl.maxCount,
	}
}

// Enable the sensor. The register is written even if the sensor is believed
// to be enabled already.
func (tsl *TSL2591) Enable() error {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()
	return tsl.enable()
}

// Disable the sensor
func (tsl *TSL2591) Disable() error {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()
	return tsl.disable()
}

func (tsl *TSL2591) enable() error {
	if err := tsl.write(TSL2591_REGISTER_ENABLE, enableOn); err != nil {
		return err
	}
	tsl.enabled = true
	return nil
}

func (tsl *TSL2591) disable() error {
	if err := tsl.write(TSL2591_REGISTER_ENABLE, TSL2591_ENABLE_POWEROFF); err != nil {
		return err
	}
	tsl.enabled = false
	return nil
}

func (tsl *TSL2591) write(register, value byte) error {
	cmd := Command(register)
	l.Debugf("Write 0x%02x: 0x%02x", cmd, value)
	return wrapBusError("write", tsl.Addr, cmd, tsl.Bus.WriteByteData(tsl.Addr, cmd, value))
}

func (tsl *TSL2591) readWord(register byte) (uint16, error) {
	cmd := Command(register)
	v, err := tsl.Bus.ReadWordData(tsl.Addr, cmd)
	if err != nil {
		return 0, wrapBusError("read", tsl.Addr, cmd, err)
	}
	return v, nil
}

// Set the integration timing for the sensor. The sensor is disabled on return.
func (tsl *TSL2591) SetTiming(timing IntegrationTime) error {
	if !timing.Valid() {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidIntegrationTime, byte(timing))
	}
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	return tsl.configure(timing, tsl.gain)
}

// Set the gain for the sensor. The sensor is disabled on return.
func (tsl *TSL2591) SetGain(gain Gain) error {
	if !gain.Valid() {
		return fmt.Errorf("%w: 0x%02x", ErrInvalidGain, byte(gain))
	}
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	return tsl.configure(tsl.timing, gain)
}

// configure runs enable, CONTROL write, disable. Stored settings only change
// once the CONTROL write is acknowledged.
func (tsl *TSL2591) configure(timing IntegrationTime, gain Gain) error {
	if err := tsl.enable(); err != nil {
		return err
	}
	if err := tsl.write(TSL2591_REGISTER_CONTROL, ControlByte(timing, gain)); err != nil {
		tsl.disable()
		return err
	}
	tsl.timing = timing
	tsl.gain = gain
	tsl.maxCount = timing.MaxCount()
	l.Debugf("Set - Gain: %v, Integration Time: %v", gain, timing)
	return tsl.disable()
}

// Read both channels: enable, wait for the integration cycle, read, disable.
func (tsl *TSL2591) FullLuminosity() (RawSample, error) {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	s, _, _, err := tsl.fullLuminosity()
	return s, err
}

func (tsl *TSL2591) fullLuminosity() (RawSample, Gain, IntegrationTime, error) {
	gain, timing := tsl.gain, tsl.timing
	if err := tsl.enable(); err != nil {
		return RawSample{}, gain, timing, err
	}

	sleep := tsl.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(timing.SettleDelay())

	full, err := tsl.readWord(TSL2591_REGISTER_CHAN0_LOW)
	if err != nil {
		tsl.disable()
		return RawSample{}, gain, timing, err
	}
	ir, err := tsl.readWord(TSL2591_REGISTER_CHAN1_LOW)
	if err != nil {
		tsl.disable()
		return RawSample{}, gain, timing, err
	}

	if err := tsl.disable(); err != nil {
		return RawSample{}, gain, timing, err
	}
	l.Debugf("Channel 0: %v, Channel 1: %v", full, ir)
	return RawSample{Full: full, IR: ir}, gain, timing, nil
}

// Read runs one sampling cycle and calibrates it with the settings in effect.
func (tsl *TSL2591) Read() (Reading, error) {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	s, gain, timing, err := tsl.fullLuminosity()
	if err != nil {
		return Reading{}, err
	}
	lux, err := CalculateLux(s.Full, s.IR, gain, timing)
	if err != nil {
		return Reading{}, err
	}
	return Reading{RawSample: s, Lux: lux, Gain: gain, Timing: timing}, nil
}

// Sample returns the current illuminance in lux, or a *SaturationError.
func (tsl *TSL2591) Sample() (float64, error) {
	r, err := tsl.Read()
	if err != nil {
		return 0, err
	}
	return r.Lux, nil
}

// ReduceSensitivity steps the gain down one level, or, at low gain, the
// integration time down one level. Callers use it to recover from saturation.
func (tsl *TSL2591) ReduceSensitivity() error {
	tsl.mu.Lock()
	defer tsl.mu.Unlock()

	gain, timing := tsl.gain, tsl.timing
	if i := indexOf(Gains, gain); i > 0 {
		gain = Gains[i-1]
	} else if i := indexOf(IntegrationTimes, timing); i > 0 {
		timing = IntegrationTimes[i-1]
	} else {
		return ErrMinimumSensitivity
	}
	l.Debugf("Attempting - Gain: %v, Integration Time: %v", gain, timing)
	return tsl.configure(timing, gain)
}

func indexOf[T comparable](list []T, v T) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}
