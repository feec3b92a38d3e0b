package mv2

import "strconv"

// deinterleave.go - component E, result de-interleaver. Grounded on
// original_source/.../CHostScript.cpp's ParseResults/Average/FindMaxOutputIndex:
// same column allocation, same loop-span accumulation, same round-half-up
// average (sum + count/2, integer divide by count).

// Deinterleave reconstructs per-column output vectors from a flat response
// word vector and the result-plan the compiler produced for the same section.
// Column count is max(output_index)+1, or zero if no entry wants a column.
func Deinterleave(words []uint16, plan []PlanEntry) [][]uint16 {
	maxIndex := -1
	for _, e := range plan {
		if e.OutputIndex > maxIndex {
			maxIndex = e.OutputIndex
		}
	}
	if maxIndex < 0 {
		return nil
	}

	columns := make([][]uint16, maxIndex+1)

	cursor := 0
	i := 0
	for i < len(plan) {
		e := plan[i]

		if e.InLoop && e.LoopSpan > 0 && e.LoopCount > 0 {
			span := plan[i : i+int(e.LoopSpan)]
			sums := make([]uint32, len(span))
			counts := make([]uint32, len(span))

			for iter := uint(0); iter < e.LoopCount; iter++ {
				for j, se := range span {
					if cursor >= len(words) {
						break
					}
					w := words[cursor]
					cursor++
					if se.OutputIndex < 0 {
						continue
					}
					if e.Averaged {
						sums[j] += uint32(w)
						counts[j]++
					} else {
						columns[se.OutputIndex] = append(columns[se.OutputIndex], w)
					}
				}
			}

			if e.Averaged {
				for j, se := range span {
					if se.OutputIndex < 0 || counts[j] == 0 {
						continue
					}
					columns[se.OutputIndex] = append(columns[se.OutputIndex], roundHalfUp(sums[j], counts[j]))
				}
			}

			i += int(e.LoopSpan)
			continue
		}

		if cursor < len(words) {
			w := words[cursor]
			cursor++
			if e.OutputIndex >= 0 {
				columns[e.OutputIndex] = append(columns[e.OutputIndex], w)
			}
		}
		i++
	}

	return columns
}

// roundHalfUp matches the original's integer average: add half the divisor
// before truncating so .5 rounds up rather than toward zero.
func roundHalfUp(sum uint32, count uint32) uint16 {
	return uint16((sum + count/2) / count)
}

// SynthesizeHeadings builds the default "unknown<i>" headings and overwrites
// them with any plan entry's explicit output name, per spec.md section 4.H.
// Ordering follows column index, not plan order.
func SynthesizeHeadings(maxIndex int, plans ...[]PlanEntry) []string {
	headings := make([]string, maxIndex+1)
	for i := range headings {
		headings[i] = headingDefault(i)
	}
	for _, plan := range plans {
		for _, e := range plan {
			if e.OutputIndex < 0 || e.OutputIndex >= len(headings) {
				continue
			}
			if e.OutputName != "" && e.OutputName != "unknown" {
				headings[e.OutputIndex] = e.OutputName
			}
		}
	}
	return headings
}

func headingDefault(i int) string {
	return "unknown" + strconv.Itoa(i)
}
