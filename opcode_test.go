package mv2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownOpcodes(t *testing.T) {
	cases := []struct {
		b        byte
		category Category
		carries  bool
		returns  bool
	}{
		{OpReadRegister0, CategoryDigital, false, true},
		{OpWriteRegister1, CategoryDigital, true, true},
		{OpSetInitBit, CategoryDigital, true, false},
		{OpWaitDataReady, CategoryDigital, false, false},
		{OpDigitizeBx, CategoryAnalog, false, true},
		{OpSetOptions, CategoryAnalog, true, false},
		{OpSetMode, CategoryMisc, true, false},
		{OpLoopBegin, CategoryMisc, true, false},
		{OpLoopEnd, CategoryMisc, false, false},
		{OpGetFirmwareVersion, CategoryMisc, false, true},
	}
	for _, c := range cases {
		info, err := Lookup(c.b)
		require.NoError(t, err)
		assert.Equal(t, c.category, info.Category)
		assert.Equal(t, c.carries, info.CarriesValue)
		assert.Equal(t, c.returns, info.ReturnsValue)
	}
}

func TestLookupUnknownOpcode(t *testing.T) {
	_, err := Lookup(0xFF)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ErrBadCommandType, e.Kind)
	assert.Equal(t, "0xFF", e.Detail)
}

func TestIsLoopMarkers(t *testing.T) {
	assert.True(t, IsLoopBegin(OpLoopBegin))
	assert.False(t, IsLoopBegin(OpLoopEnd))
	assert.True(t, IsLoopEnd(OpLoopEnd))
	assert.False(t, IsLoopEnd(OpLoopBegin))
}
