// Package hardware implements the bench-test channel collaborator (§6,
// "A channel... not imported by the core"): a serial-port symbol link
// keyed by a GPIO push-to-talk line. It exists so the decoding core can
// be driven against a real radio modem instead of a simulated channel,
// adapting the teacher's CC1200Modem (m17/modem.go: trxMutex-guarded
// trx state, go.bug.st/serial port, GPIO reset/PA-enable lines) down to
// the plain symbol-sequence transmit/receive shape the rest of this
// module's channel collaborators share, and dropping the CC1200-specific
// command protocol that only makes sense for that one radio's firmware.
package hardware

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

type trxState int

const (
	trxIdle trxState = iota
	trxTX
	trxRX
)

// PTT keys a transmitter on or off. GPIOPTT (a GPIO output line) is the real
// implementation; tests substitute a no-op fake.
type PTT interface {
	SetValue(value int) error
	Close() error
}

// noopPTT is used when the caller has no GPIO line to key (bench setups
// that loop back over serial alone, or the emulator).
type noopPTT struct{}

func (noopPTT) SetValue(int) error { return nil }
func (noopPTT) Close() error       { return nil }

// SerialModem transmits and receives one byte per channel symbol over a
// serial port, keying ptt around each transmission (grounded on
// CC1200Modem.TransmitPacket's StopRX/StartTX/.../StopTX/StartRX
// bracketing, simplified from symbol-rate RRC framing to raw bytes since
// this module's channel symbols are already small integers, not RF
// samples).
type SerialModem struct {
	port        serial.Port
	ptt         PTT
	readTimeout time.Duration

	mu    sync.Mutex
	state trxState
}

// Config parameterises a SerialModem.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("hardware: port must be set")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("hardware: baud rate must be > 0, got %d", c.BaudRate)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("hardware: read timeout must be > 0, got %v", c.ReadTimeout)
	}
	return nil
}

// NewSerialModem opens the named serial port and wraps it with the
// given PTT line. Pass a nil ptt for bench setups with no GPIO control
// (a software loopback or modem emulator).
func NewSerialModem(cfg Config, ptt PTT) (*SerialModem, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("hardware: open %s: %w", cfg.Port, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, fmt.Errorf("hardware: set read timeout: %w", err)
	}
	if ptt == nil {
		ptt = noopPTT{}
	}
	return &SerialModem{port: port, ptt: ptt, readTimeout: cfg.ReadTimeout, state: trxIdle}, nil
}

// Close releases the serial port and the PTT line.
func (m *SerialModem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err1 := m.port.Close()
	err2 := m.ptt.Close()
	if err1 != nil || err2 != nil {
		return fmt.Errorf("hardware: close: port=%v ptt=%v", err1, err2)
	}
	return nil
}

// Transmit keys ptt on, writes tx as one byte per symbol, then keys ptt
// off and reads back whatever the channel returns within the configured
// read timeout — the received sequence, which may be shorter or longer
// than tx on real hardware (dropped or duplicated bytes at the serial
// layer behave like insertion/deletion events, §4.C).
func (m *SerialModem) Transmit(tx []int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := symbolsToBytes(tx)
	if err != nil {
		return nil, err
	}
	if err := m.startTX(); err != nil {
		return nil, err
	}
	if _, err := m.port.Write(buf); err != nil {
		m.stopTX()
		return nil, fmt.Errorf("hardware: write: %w", err)
	}
	m.stopTX()

	if err := m.startRX(); err != nil {
		return nil, err
	}
	defer m.stopRX()

	rx := make([]int, 0, len(tx))
	chunk := make([]byte, 256)
	for {
		n, err := m.port.Read(chunk)
		if n > 0 {
			for _, b := range chunk[:n] {
				rx = append(rx, int(b))
			}
		}
		if err != nil || n == 0 {
			break
		}
	}
	return rx, nil
}

// symbolsToBytes packs a symbol sequence into one byte per symbol,
// rejecting any symbol too large to fit.
func symbolsToBytes(tx []int) ([]byte, error) {
	buf := make([]byte, len(tx))
	for i, sym := range tx {
		if sym < 0 || sym > 255 {
			return nil, fmt.Errorf("hardware: symbol %d at position %d does not fit in one byte", sym, i)
		}
		buf[i] = byte(sym)
	}
	return buf, nil
}

func (m *SerialModem) startTX() error {
	if err := m.ptt.SetValue(1); err != nil {
		return fmt.Errorf("hardware: key PTT: %w", err)
	}
	m.state = trxTX
	return nil
}

func (m *SerialModem) stopTX() {
	m.ptt.SetValue(0)
	m.state = trxIdle
}

func (m *SerialModem) startRX() error {
	m.state = trxRX
	return nil
}

func (m *SerialModem) stopRX() {
	m.state = trxIdle
}
