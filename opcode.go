package mv2

import "fmt"

// opcode.go - Static catalog of MV2 script opcodes (category, carries-value, returns-value)
// and a lookup for mapping the raw opcode byte into its catalog entry. No state.

// Category classifies an opcode by the subsystem it drives, and in turn the MV2
// electrical mode ([ModeDigital]/[ModeAnalog]) the instrument must be in to run it.
type Category uint8

const (
	CategoryDigital Category = iota
	CategoryAnalog
	CategoryMisc
)

// String implements fmt.Stringer
func (c Category) String() string {
	switch c {
	case CategoryDigital:
		return "digital"
	case CategoryAnalog:
		return "analog"
	case CategoryMisc:
		return "misc"
	}
	return "unknown"
}

// Opcode byte assignments, per spec.md section 3.
const (
	OpReadRegister0    byte = 0x1C
	OpReadRegister1    byte = 0x1D
	OpReadRegister2    byte = 0x1E
	OpWriteRegister0   byte = 0x2C
	OpWriteRegister1   byte = 0x2D
	OpWriteRegister2   byte = 0x2E
	OpSetInitBit       byte = 0x01
	OpWaitDataReady    byte = 0x02
	OpDigitizeBx       byte = 0x41
	OpDigitizeBy       byte = 0x42
	OpDigitizeBz       byte = 0x43
	OpDigitizeTemp     byte = 0x44
	OpSetOptions       byte = 0x45
	OpSetMode          byte = 0xC1
	OpLoopBegin        byte = 0xC2
	OpLoopEnd          byte = 0xC3
	OpGetFirmwareVersion byte = 0xC4
)

// OpcodeInfo is the static, immutable attribute set for a single opcode.
type OpcodeInfo struct {
	Byte         byte
	Mnemonic     string
	Category     Category
	CarriesValue bool
	ReturnsValue bool
}

// opcodeTable is the fixed catalog, identical on both host and instrument sides.
var opcodeTable = []OpcodeInfo{
	{OpReadRegister0, "read-reg-0", CategoryDigital, false, true},
	{OpReadRegister1, "read-reg-1", CategoryDigital, false, true},
	{OpReadRegister2, "read-reg-2", CategoryDigital, false, true},
	{OpWriteRegister0, "write-reg-0", CategoryDigital, true, true},
	{OpWriteRegister1, "write-reg-1", CategoryDigital, true, true},
	{OpWriteRegister2, "write-reg-2", CategoryDigital, true, true},
	{OpSetInitBit, "set-init-bit", CategoryDigital, true, false},
	{OpWaitDataReady, "wait-data-ready", CategoryDigital, false, false},
	{OpDigitizeBx, "digitize-Bx", CategoryAnalog, false, true},
	{OpDigitizeBy, "digitize-By", CategoryAnalog, false, true},
	{OpDigitizeBz, "digitize-Bz", CategoryAnalog, false, true},
	{OpDigitizeTemp, "digitize-T", CategoryAnalog, false, true},
	{OpSetOptions, "set-options", CategoryAnalog, true, false},
	{OpSetMode, "set-mode", CategoryMisc, true, false},
	{OpLoopBegin, "loop-begin", CategoryMisc, true, false},
	{OpLoopEnd, "loop-end", CategoryMisc, false, false},
	{OpGetFirmwareVersion, "get-fw-version", CategoryMisc, false, true},
}

// opcodeIndex maps the raw byte to its position in opcodeTable, built once at
// package init so Lookup is a simple map hit rather than a linear scan.
var opcodeIndex = func() map[byte]int {
	idx := make(map[byte]int, len(opcodeTable))
	for i, info := range opcodeTable {
		idx[info.Byte] = i
	}
	return idx
}()

// Lookup returns the catalog entry for the given opcode byte, or an
// ErrBadCommandType wrapping the offending byte if it isn't a catalog member.
func Lookup(b byte) (OpcodeInfo, error) {
	if i, ok := opcodeIndex[b]; ok {
		return opcodeTable[i], nil
	}
	return OpcodeInfo{}, &Error{Kind: ErrBadCommandType, Detail: fmt.Sprintf("0x%02X", b)}
}

// IsLoopBegin and IsLoopEnd let callers special-case the two loop-marker opcodes
// without re-deriving them from the byte constants everywhere.
func IsLoopBegin(b byte) bool { return b == OpLoopBegin }
func IsLoopEnd(b byte) bool   { return b == OpLoopEnd }
