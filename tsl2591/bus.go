package tsl2591

import (
	"encoding/binary"
	"sync"

	"golang.org/x/exp/io/i2c"
	"golang.org/x/exp/io/i2c/driver"
)

// Bus is the two-wire transport the driver talks through.
// Command bytes must already carry TSL2591_COMMAND_BIT.
type Bus interface {
	// WriteByteData writes the command byte followed by value.
	WriteByteData(addr, cmd, value byte) error
	// ReadWordData writes the command byte, then reads a burst of 4 bytes and
	// returns the first two combined little-endian.
	ReadWordData(addr, cmd byte) (uint16, error)
	Close() error
}

// I2CBus is a Bus over golang.org/x/exp/io/i2c. Devices are opened lazily,
// one per 7-bit address.
type I2CBus struct {
	opener  driver.Opener
	devices map[byte]*i2c.Device
	mu      sync.Mutex
}

// NewI2CBus returns a bus that opens devices through o.
func NewI2CBus(o driver.Opener) *I2CBus {
	return &I2CBus{
		opener:  o,
		devices: make(map[byte]*i2c.Device),
	}
}

// OpenI2CBus returns a bus on the i2c character device at path, e.g. /dev/i2c-1.
func OpenI2CBus(path string) *I2CBus {
	if path == "" {
		// i2c-1 is the default I2C bus for the Raspberry Pi
		path = "/dev/i2c-1"
	}
	return NewI2CBus(&i2c.Devfs{Dev: path})
}

func (b *I2CBus) device(addr byte) (*i2c.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d, ok := b.devices[addr]; ok {
		return d, nil
	}
	d, err := i2c.Open(b.opener, int(addr))
	if err != nil {
		return nil, err
	}
	b.devices[addr] = d
	return d, nil
}

func (b *I2CBus) WriteByteData(addr, cmd, value byte) error {
	d, err := b.device(addr)
	if err != nil {
		return wrapBusError("write", addr, cmd, err)
	}
	return wrapBusError("write", addr, cmd, d.Write([]byte{cmd, value}))
}

func (b *I2CBus) ReadWordData(addr, cmd byte) (uint16, error) {
	d, err := b.device(addr)
	if err != nil {
		return 0, wrapBusError("read", addr, cmd, err)
	}
	if err := d.Write([]byte{cmd}); err != nil {
		return 0, wrapBusError("read", addr, cmd, err)
	}
	// The device keeps streaming the following registers, so a burst of
	// four is read and only the addressed word is kept.
	buf := make([]byte, 4)
	if err := d.Read(buf); err != nil {
		return 0, wrapBusError("read", addr, cmd, err)
	}
	return binary.LittleEndian.Uint16(buf[0:2]), nil
}

// Close releases every device opened on the bus.
func (b *I2CBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var first error
	for addr, d := range b.devices {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
		delete(b.devices, addr)
	}
	return first
}
