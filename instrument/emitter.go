package instrument

import "github.com/michaelb1886/mv2"

// emitter.go - component G, response emitter. Grounded on
// original_source/.../MV2HostOutput.cpp's SendResponse: header word carries
// total response length in bytes, followed by results, status, status-detail
// and a trailing XOR checksum word, using the same fold the host's codec uses.

// BuildResponse assembles a complete response frame's words (header word
// included) from the VM's collected results and a status/detail pair.
func BuildResponse(results []uint16, status mv2.ErrorKind, statusDetail uint16) []uint16 {
	n := len(results)
	frame := make([]uint16, 0, n+4)

	frame = append(frame, 0) // header placeholder, filled below
	frame = append(frame, results...)
	frame = append(frame, statusCode(status))
	frame = append(frame, statusDetail)

	frame[0] = uint16(len(frame)+1) * 2 // +1 for the CRC word about to be appended

	frame = append(frame, mv2.XorWords(frame))
	return frame
}

// statusCode inverts mv2.KindForStatus for the instrument side: given a
// result ErrorKind, report the numeric status word the host expects. The
// zero kind ("" - no error recorded) reports kNoError (0).
func statusCode(kind mv2.ErrorKind) uint16 {
	if kind == "" {
		return 0
	}
	for code, k := range statusCodesByKind() {
		if k == kind {
			return code
		}
	}
	return 101 // falls back to the same default KindForStatus uses for unknown codes (syntax)
}

// statusCodesByKind is the numeric status table, grounded on the same
// gResponseErrorCodes the host-side KindForStatus in errors.go reads.
func statusCodesByKind() map[uint16]mv2.ErrorKind {
	return map[uint16]mv2.ErrorKind{
		101: mv2.ErrSyntax,
		102: mv2.ErrMode,
		103: mv2.ErrOutOfMemory,
		104: mv2.ErrNestedLoop,
		105: mv2.ErrUnspecifiedLoop,
		201: mv2.ErrBadCrc,
		202: mv2.ErrScriptTooLarge,
		203: mv2.ErrNoValidData,
		204: mv2.ErrTransmission,
		301: mv2.ErrAdcTimeout,
	}
}
