package instrument

import (
	"sync"
	"time"

	"github.com/michaelb1886/mv2"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/spi"
)

// hal_periph.go - a HAL backed by real SPI/GPIO hardware, grounded on
// MV2Hal.h's pin model (SPI register access in digital mode, ADC pins in
// analog mode, INIT/mode-select pins) and on periph.io's spi.Conn/gpio.PinIO
// usage pattern in other_examples' lepton.go driver (periph.io/x/periph's
// New(spi.Port, i2c.Bus, gpio.PinOut) constructor shape).
//
// MV2 has no ADC peripheral of its own reachable through periph's digital
// conn interfaces, and periph's stable API offers no analog sampling on a
// gpio pin, so the four AnalogDigitize* calls round-trip through the SPI link
// exactly like the digital register calls.

// adcTimeout mirrors MV2Hal.h's A_D_CONVERSION_TIMEOUT (milliseconds).
const adcTimeout = 5 * time.Millisecond

// PeriphHAL drives the instrument's SPI bus and INIT/mode-select GPIO pins
// through periph.io/x/periph.
type PeriphHAL struct {
	mu sync.Mutex

	conn       spi.Conn
	initPin    gpio.PinOut
	modePin    gpio.PinOut
	dataReady  gpio.PinIn
	mode       Mode
}

// NewPeriphHAL wires a SPI connection and the INIT/mode-select/data-ready
// pins into a HAL. The caller is responsible for opening the SPI port and
// the GPIO pins (periph.io's host.Init() plus periphery registry lookups)
// before constructing this.
func NewPeriphHAL(conn spi.Conn, initPin, modePin gpio.PinOut, dataReady gpio.PinIn) *PeriphHAL {
	return &PeriphHAL{conn: conn, initPin: initPin, modePin: modePin, dataReady: dataReady, mode: ModeDigital}
}

func (h *PeriphHAL) transferWord(w uint16) (uint16, error) {
	tx := []byte{byte(w >> 8), byte(w)}
	rx := make([]byte, 2)
	if err := h.conn.Tx(tx, rx); err != nil {
		return 0, wrapIOErr(err)
	}
	return uint16(rx[0])<<8 | uint16(rx[1]), nil
}

func (h *PeriphHAL) DigitalWaitForDataReady() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	deadline := time.Now().Add(adcTimeout)
	for h.dataReady.Read() != gpio.High {
		if time.Now().After(deadline) {
			return &mv2.Error{Kind: mv2.ErrAdcTimeout}
		}
	}
	return nil
}

func (h *PeriphHAL) DigitalWriteAndRead(data uint16) (uint16, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transferWord(data)
}

func (h *PeriphHAL) DigitalReadRegister(register byte) uint8 {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, err := h.transferWord(uint16(register) << 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func (h *PeriphHAL) DigitalSetInitBit(value bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	level := gpio.Low
	if value {
		level = gpio.High
	}
	h.initPin.Out(level)
}

func (h *PeriphHAL) AnalogDigitizeBx() uint16   { return h.digitizeAnalogWord(mv2.OpDigitizeBx) }
func (h *PeriphHAL) AnalogDigitizeBy() uint16   { return h.digitizeAnalogWord(mv2.OpDigitizeBy) }
func (h *PeriphHAL) AnalogDigitizeBz() uint16   { return h.digitizeAnalogWord(mv2.OpDigitizeBz) }
func (h *PeriphHAL) AnalogDigitizeTemp() uint16 { return h.digitizeAnalogWord(mv2.OpDigitizeTemp) }

func (h *PeriphHAL) digitizeAnalogWord(channelOpcode byte) uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, err := h.transferWord(uint16(channelOpcode) << 8)
	if err != nil {
		return 0
	}
	return (v >> analogShift) + analogOffset
}

func (h *PeriphHAL) AnalogSetOptions(options byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.transferWord(uint16(options))
}

func (h *PeriphHAL) SetMode(m Mode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mode = m
	level := gpio.Low
	if m == ModeAnalog {
		level = gpio.High
	}
	h.modePin.Out(level)
}

func (h *PeriphHAL) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// analogOffset/analogShift match MV2Hal.h's ANALOG_OFFSET/ANALOG_SHIFT: the
// digitized value is referenced to VCC/2 and shifted up to a 16-bit range.
const (
	analogOffset = 0x200
	analogShift  = 6
)

func wrapIOErr(err error) error {
	return &mv2.Error{Kind: mv2.ErrIO, Cause: err}
}
