package mv2

import "encoding/binary"

// frame.go - wire framing and XOR integrity, component B. Symmetric: the instrument
// uses the exact same wrapping rule for its responses (see instrument/emitter.go).

const wordWidth = 2 // bytes per 16-bit word on the wire

// minResponseWords is the minimum word count of a valid response frame:
// header + status + status-detail + crc, with zero result words (spec.md section 4.E).
const minResponseWords = 4

// XorWords folds a sequence of 16-bit words with XOR. Both CArduinoSerialPort's
// GenerateCrc/CheckCrc (host) and MV2Utility.cpp's GenerateCrc/CheckCrc (instrument)
// in the original firmware are this exact fold; this is the single shared
// implementation both mv2 (host) and instrument (instrument-side) call.
func XorWords(words []uint16) uint16 {
	var x uint16
	for _, w := range words {
		x ^= w
	}
	return x
}

// EncodeWords serializes a word sequence to little-endian bytes.
func EncodeWords(words []uint16) []byte {
	buf := make([]byte, len(words)*wordWidth)
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[i*wordWidth:], w)
	}
	return buf
}

// DecodeWords deserializes little-endian bytes into a word sequence. The caller
// guarantees len(b) is a multiple of wordWidth.
func DecodeWords(b []byte) []uint16 {
	words := make([]uint16, len(b)/wordWidth)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(b[i*wordWidth:])
	}
	return words
}

// WrapRequest builds a complete request frame: a size-in-bytes header word,
// the command words verbatim, and a trailing XOR checksum word, serialized
// little-endian. size_bytes = 2*(n+2), and XOR of the whole frame is 0 by
// construction (the CRC word is chosen to make it so).
func WrapRequest(commandWords []uint16) []byte {
	n := len(commandWords)
	sizeBytes := uint16(wordWidth * (n + 2))

	frame := make([]uint16, 0, n+2)
	frame = append(frame, sizeBytes)
	frame = append(frame, commandWords...)
	frame = append(frame, XorWords(frame))

	return EncodeWords(frame)
}

// ParseResponseHeader extracts the expected total frame length in bytes from the
// response's first word. The header word *is* the byte length; this exists as its
// own function because the orchestrator's two-phase read (spec.md section 4.C)
// needs to read just this word before it knows how many more bytes to read.
func ParseResponseHeader(firstWord uint16) (frameByteLength int, err error) {
	if firstWord%wordWidth != 0 {
		return 0, newErr(ErrShortFrame, "frame byte size is not a multiple of the word width")
	}
	if int(firstWord) < wordWidth {
		return 0, newErr(ErrShortFrame, "frame byte size smaller than its own header word")
	}
	return int(firstWord), nil
}

// ParseResponseBody validates and splits a complete response frame (as words,
// header word included) into its result words, status and status-detail.
func ParseResponseBody(frameWords []uint16) (results []uint16, status uint16, statusDetail uint16, err error) {
	n := len(frameWords)
	if n < minResponseWords {
		return nil, 0, 0, newErr(ErrShortFrame, "response frame shorter than header+status+crc")
	}
	if XorWords(frameWords) != 0 {
		return nil, 0, 0, newErr(ErrBadCrc, "")
	}

	statusIdx := n - 3
	statusDetailIdx := n - 2
	results = frameWords[1:statusIdx]
	status = frameWords[statusIdx]
	statusDetail = frameWords[statusDetailIdx]
	return results, status, statusDetail, nil
}

// minRequestWords is a request frame's minimum word count: header + crc,
// with zero command words.
const minRequestWords = 2

// ParseRequestBody validates and strips a complete request frame (as words,
// header word included) down to its command words. The instrument side uses
// this symmetrically to ParseResponseBody on the host side.
func ParseRequestBody(frameWords []uint16) (commands []uint16, err error) {
	n := len(frameWords)
	if n < minRequestWords {
		return nil, newErr(ErrShortFrame, "request frame shorter than header+crc")
	}
	if XorWords(frameWords) != 0 {
		return nil, newErr(ErrBadCrc, "")
	}
	return frameWords[1 : n-1], nil
}
