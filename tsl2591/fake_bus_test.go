package tsl2591

import (
	"fmt"
	"time"
)

// fakeBus records every transfer and answers reads from a per-command queue.
type fakeBus struct {
	ops      []string
	words    map[byte][]uint16
	failCmd  map[byte]error
	control  []byte
	closed   bool
	enableOn bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		words:   make(map[byte][]uint16),
		failCmd: make(map[byte]error),
	}
}

func (b *fakeBus) queue(full, ir uint16) {
	b.words[Command(TSL2591_REGISTER_CHAN0_LOW)] = append(b.words[Command(TSL2591_REGISTER_CHAN0_LOW)], full)
	b.words[Command(TSL2591_REGISTER_CHAN1_LOW)] = append(b.words[Command(TSL2591_REGISTER_CHAN1_LOW)], ir)
}

func (b *fakeBus) WriteByteData(addr, cmd, value byte) error {
	if err, ok := b.failCmd[cmd]; ok {
		b.ops = append(b.ops, fmt.Sprintf("fail-write %02x", cmd))
		return err
	}
	switch cmd {
	case Command(TSL2591_REGISTER_ENABLE):
		if value == TSL2591_ENABLE_POWEROFF {
			b.ops = append(b.ops, "disable")
			b.enableOn = false
		} else {
			b.ops = append(b.ops, fmt.Sprintf("enable %02x", value))
			b.enableOn = true
		}
	case Command(TSL2591_REGISTER_CONTROL):
		b.ops = append(b.ops, fmt.Sprintf("control %02x", value))
		b.control = append(b.control, value)
	default:
		b.ops = append(b.ops, fmt.Sprintf("write %02x %02x", cmd, value))
	}
	return nil
}

func (b *fakeBus) ReadWordData(addr, cmd byte) (uint16, error) {
	if err, ok := b.failCmd[cmd]; ok {
		b.ops = append(b.ops, fmt.Sprintf("fail-read %02x", cmd))
		return 0, err
	}
	b.ops = append(b.ops, fmt.Sprintf("read %02x", cmd))
	q := b.words[cmd]
	if len(q) == 0 {
		return 0, nil
	}
	v := q[0]
	b.words[cmd] = q[1:]
	return v, nil
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBus) sleep(d time.Duration) {
	b.ops = append(b.ops, fmt.Sprintf("sleep %v", d))
}

func (b *fakeBus) reset() {
	b.ops = nil
	b.control = nil
}
