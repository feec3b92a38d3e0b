// Package instrument implements the instrument-side command VM and hardware
// abstraction layer: the microcontroller half of the MV2 stack. Grounded on
// original_source/.../MV2ScriptUtility.cpp, MV2Hal.h and MV2HostOutput.cpp.
package instrument

import "github.com/michaelb1886/mv2"

// Mode is the instrument's electrical mode. Analog and digital commands are
// only valid while the instrument is in the matching mode (MV2Hal.h's
// MiscSetDigitalAnalogMode / GetMV2Mode).
type Mode uint8

const (
	ModeDigital Mode = iota
	ModeAnalog
)

// HAL is the hardware abstraction layer a command dispatches to. A real
// deployment backs it with SPI/GPIO (PeriphHAL); tests and the simulator use
// an in-memory fixture (SimHAL). Grounded on MV2Hal.h's forward declarations.
type HAL interface {
	// Digital mode
	DigitalWaitForDataReady() error
	DigitalWriteAndRead(data uint16) (uint16, error)
	DigitalReadRegister(register byte) uint8
	DigitalSetInitBit(value bool)

	// Analog mode
	AnalogDigitizeBx() uint16
	AnalogDigitizeBy() uint16
	AnalogDigitizeBz() uint16
	AnalogDigitizeTemp() uint16
	AnalogSetOptions(options byte)

	// Miscellaneous
	SetMode(m Mode)
	Mode() Mode
}

// FirmwareVersion is the value reported by get-fw-version, matching
// MV2FirmwareVersion.h's FW_VERSION constant.
const FirmwareVersion uint16 = 0x0105

// modeForCategory maps an opcode category to the electrical mode it requires,
// or reports false for opcodes with no mode requirement (misc category).
func modeForCategory(cat mv2.Category) (Mode, bool) {
	switch cat {
	case mv2.CategoryDigital:
		return ModeDigital, true
	case mv2.CategoryAnalog:
		return ModeAnalog, true
	default:
		return 0, false
	}
}
