package mv2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeinterleaveSimpleColumn(t *testing.T) {
	plan := []PlanEntry{{OutputIndex: 0, OutputName: "Bx"}}
	cols := Deinterleave([]uint16{42}, plan)
	assert.Equal(t, [][]uint16{{42}}, cols)
}

func TestDeinterleaveAveragedLoop(t *testing.T) {
	// spec.md scenario 2: loop count=4 average=true, single output.
	plan := []PlanEntry{{OutputIndex: 0, OutputName: "Bx", InLoop: true, LoopCount: 4, LoopSpan: 1, Averaged: true}}
	cols := Deinterleave([]uint16{10, 20, 30, 41}, plan)
	assert.Equal(t, [][]uint16{{25}}, cols) // (10+20+30+41+2)/4 = 25
}

func TestDeinterleaveNonAveragedLoopTwoOutputs(t *testing.T) {
	// spec.md scenario 3: loop count=2 average=false, two outputs.
	plan := []PlanEntry{
		{OutputIndex: 0, OutputName: "Bx", InLoop: true, LoopCount: 2, LoopSpan: 2, Averaged: false},
		{OutputIndex: 1, OutputName: "By", InLoop: true},
	}
	cols := Deinterleave([]uint16{100, 200, 101, 201}, plan)
	assert.Equal(t, [][]uint16{{100, 101}, {200, 201}}, cols)
}

func TestDeinterleaveDropsNegativeOutputIndex(t *testing.T) {
	plan := []PlanEntry{
		{OutputIndex: 0, OutputName: "Bx"},
		{OutputIndex: -1, OutputName: "unknown"},
	}
	cols := Deinterleave([]uint16{7, 8}, plan)
	assert.Equal(t, [][]uint16{{7}}, cols)
}

func TestDeinterleaveNoOutputIndicesYieldsNoColumns(t *testing.T) {
	plan := []PlanEntry{{OutputIndex: -1}}
	cols := Deinterleave([]uint16{1, 2, 3}, plan)
	assert.Nil(t, cols)
}

func TestDeinterleaveAveragedLoopSkipsDroppedColumn(t *testing.T) {
	plan := []PlanEntry{
		{OutputIndex: 0, OutputName: "Bx", InLoop: true, LoopCount: 3, LoopSpan: 2, Averaged: true},
		{OutputIndex: -1, InLoop: true},
	}
	cols := Deinterleave([]uint16{10, 999, 20, 999, 30, 999}, plan)
	// average of 10,20,30 -> (60+1)/3 = 20 with half-up rounding
	assert.Equal(t, uint16(20), cols[0][0])
}

func TestSynthesizeHeadingsDefaultsAndOverrides(t *testing.T) {
	plan := []PlanEntry{
		{OutputIndex: 1, OutputName: "By"},
		{OutputIndex: 0, OutputName: "unknown"},
	}
	headings := SynthesizeHeadings(1, plan)
	assert.Equal(t, []string{"unknown0", "By"}, headings)
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, uint16(25), roundHalfUp(10+20+30+41, 4))
	assert.Equal(t, uint16(3), roundHalfUp(5, 2)) // 2.5 rounds up to 3
	assert.Equal(t, uint16(2), roundHalfUp(4, 2))
}
