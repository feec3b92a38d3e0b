package instrument

import (
	"strconv"

	"github.com/michaelb1886/mv2"
)

// vm.go - component F, script VM. Grounded on
// original_source/.../MV2ScriptUtility.cpp's ExecuteScript/ExecuteCommand/
// CheckCommand/SearchForEndLoopIndex: single-level-nested-loop interpreter,
// no call stack beyond Go's own recursion for the one permitted loop level.

// VM walks a compiled command buffer and dispatches each word to a HAL.
type VM struct {
	hal HAL
}

// NewVM constructs a VM bound to the given hardware abstraction layer.
func NewVM(hal HAL) *VM {
	return &VM{hal: hal}
}

// Run executes a command buffer against a fixed-capacity output scratch
// buffer and returns the words collected. Overflowing capacity fails with
// out-of-memory, matching the original's bounded ResultsBufferLength.
func (vm *VM) Run(commands []uint16, capacity int) ([]uint16, error) {
	out := make([]uint16, capacity)
	outLen := 0
	if err := vm.run(commands, out, &outLen, capacity); err != nil {
		return nil, err
	}
	return out[:outLen], nil
}

func (vm *VM) run(commands []uint16, out []uint16, outLen *int, capacity int) error {
	for i := 0; i < len(commands); i++ {
		opcodeByte := byte(commands[i] >> 8)
		value := byte(commands[i])

		info, err := vm.checkCommand(opcodeByte)
		if err != nil {
			return withIndex(err, i)
		}

		if mv2.IsLoopBegin(info.Byte) {
			bodyStart := i + 1
			bodyEnd, err := searchForEndLoopIndex(commands, bodyStart)
			if err != nil {
				return withIndex(err, i)
			}

			count := int(value)
			for iter := 0; iter < count; iter++ {
				if err := vm.run(commands[bodyStart:bodyEnd], out, outLen, capacity); err != nil {
					return withIndex(err, i)
				}
			}
			i = bodyEnd
			continue
		}

		if mv2.IsLoopEnd(info.Byte) {
			continue
		}

		retVal, err := vm.executeCommand(info, value)
		if err != nil {
			return withIndex(err, i)
		}

		if info.ReturnsValue {
			if *outLen >= capacity {
				return withIndex(&mv2.Error{Kind: mv2.ErrOutOfMemory}, i)
			}
			out[*outLen] = retVal
			*outLen++
		}
	}
	return nil
}

// checkCommand looks up the opcode and enforces mode safety: an opcode from
// the category not matching the instrument's current mode is rejected before
// dispatch, per CheckCommand in the original firmware.
func (vm *VM) checkCommand(opcodeByte byte) (mv2.OpcodeInfo, error) {
	info, err := mv2.Lookup(opcodeByte)
	if err != nil {
		return mv2.OpcodeInfo{}, &mv2.Error{Kind: mv2.ErrSyntax, Cause: err}
	}

	required, hasRequirement := modeForCategory(info.Category)
	if hasRequirement && required != vm.hal.Mode() {
		return mv2.OpcodeInfo{}, &mv2.Error{Kind: mv2.ErrMode}
	}
	return info, nil
}

// searchForEndLoopIndex scans forward from a loop body's start for the
// matching loop-end, rejecting a second loop-begin before it with
// nested-loop and an unterminated loop with unspecified-loop.
func searchForEndLoopIndex(commands []uint16, start int) (int, error) {
	for i := start; i < len(commands); i++ {
		b := byte(commands[i] >> 8)
		if mv2.IsLoopEnd(b) {
			return i, nil
		}
		if mv2.IsLoopBegin(b) {
			return 0, &mv2.Error{Kind: mv2.ErrNestedLoop}
		}
	}
	return 0, &mv2.Error{Kind: mv2.ErrUnspecifiedLoop}
}

// executeCommand dispatches one non-loop opcode to the HAL, mirroring
// ExecuteCommand's switch in the original firmware.
func (vm *VM) executeCommand(info mv2.OpcodeInfo, value byte) (uint16, error) {
	switch info.Byte {
	case mv2.OpReadRegister0, mv2.OpReadRegister1, mv2.OpReadRegister2:
		return uint16(vm.hal.DigitalReadRegister(info.Byte)), nil

	case mv2.OpWriteRegister0, mv2.OpWriteRegister1, mv2.OpWriteRegister2:
		retVal, err := vm.hal.DigitalWriteAndRead(uint16(info.Byte)<<8 | uint16(value))
		if err != nil {
			return 0, err
		}
		return retVal, nil

	case mv2.OpSetInitBit:
		vm.hal.DigitalSetInitBit(value != 0)
		return 0, nil

	case mv2.OpWaitDataReady:
		if err := vm.hal.DigitalWaitForDataReady(); err != nil {
			return 0, err
		}
		return 0, nil

	case mv2.OpDigitizeBx:
		return vm.hal.AnalogDigitizeBx(), nil
	case mv2.OpDigitizeBy:
		return vm.hal.AnalogDigitizeBy(), nil
	case mv2.OpDigitizeBz:
		return vm.hal.AnalogDigitizeBz(), nil
	case mv2.OpDigitizeTemp:
		return vm.hal.AnalogDigitizeTemp(), nil

	case mv2.OpSetOptions:
		vm.hal.AnalogSetOptions(value)
		return 0, nil

	case mv2.OpSetMode:
		if value == 0 {
			vm.hal.SetMode(ModeDigital)
		} else {
			vm.hal.SetMode(ModeAnalog)
		}
		return 0, nil

	case mv2.OpGetFirmwareVersion:
		return FirmwareVersion, nil

	default:
		return 0, &mv2.Error{Kind: mv2.ErrSyntax}
	}
}

// withIndex attaches the failing command index to an *mv2.Error's Detail if
// it doesn't already carry one, so the orchestrator can report where a
// script-level failure occurred.
func withIndex(err error, index int) error {
	e, ok := err.(*mv2.Error)
	if !ok {
		return err
	}
	if e.Detail != "" {
		return e
	}
	return &mv2.Error{Kind: e.Kind, Detail: strconv.Itoa(index), Cause: e.Cause}
}
