package mv2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestXorWordsClosure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.Uint16()).Draw(t, "words")
		frame := WrapRequest(words)
		decoded := DecodeWords(frame)
		assert.Equal(t, uint16(0), XorWords(decoded), "CRC closure: XOR(wrap_request(w)) must be 0")
	})
}

func TestWrapRequestSizeHeader(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.Uint16(), 0, 64).Draw(t, "words")
		frame := WrapRequest(words)
		decoded := DecodeWords(frame)
		require.Len(t, decoded, len(words)+2)
		assert.Equal(t, uint16(len(frame)), decoded[0])
	})
}

func wrapResponse(results []uint16, status, statusDetail uint16) []uint16 {
	n := len(results)
	frame := make([]uint16, 0, n+4)
	sizeBytes := uint16(wordWidth * (n + 4))
	frame = append(frame, sizeBytes)
	frame = append(frame, results...)
	frame = append(frame, status, statusDetail)
	frame = append(frame, XorWords(frame))
	return frame
}

func TestResponseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		results := rapid.SliceOfN(rapid.Uint16(), 0, 32).Draw(t, "results")
		status := rapid.Uint16().Draw(t, "status")
		detail := rapid.Uint16().Draw(t, "detail")

		frame := wrapResponse(results, status, detail)
		gotResults, gotStatus, gotDetail, err := ParseResponseBody(frame)
		require.NoError(t, err)
		if len(results) == 0 {
			assert.Empty(t, gotResults)
		} else {
			assert.Equal(t, results, gotResults)
		}
		assert.Equal(t, status, gotStatus)
		assert.Equal(t, detail, gotDetail)
	})
}

func TestParseResponseBodyBadCrc(t *testing.T) {
	frame := wrapResponse([]uint16{0x1234}, 0, 0)
	frame[1] ^= 1 // flip a bit in the single result word
	_, _, _, err := ParseResponseBody(frame)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrBadCrc, e.Kind)
}

func TestParseResponseBodyShortFrame(t *testing.T) {
	_, _, _, err := ParseResponseBody([]uint16{8, 0, 0})
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrShortFrame, e.Kind)
}

func TestParseResponseHeaderRejectsOddSize(t *testing.T) {
	_, err := ParseResponseHeader(7)
	require.Error(t, err)
}

func TestZeroResultResponse(t *testing.T) {
	frame := wrapResponse(nil, 0, 0)
	results, status, detail, err := ParseResponseBody(frame)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, uint16(0), status)
	assert.Equal(t, uint16(0), detail)
}
