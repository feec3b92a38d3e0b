package mv2

import "strconv"

// compiler.go - component D, script compiler. Grounded on
// original_source/.../CHostScript.cpp's FillCommandsBufferFromXmlNodes and
// GetCommandFromXmlNode: type/value attributes are hex, outputIndex/count/
// repeat are decimal, exactly as the original parses them with strtol.

// createCommand packs an opcode byte and a value byte into one command word,
// the same shift-and-mask CreateCommand uses in the original CHostScript.cpp.
func createCommand(opcode byte, value byte) uint16 {
	return uint16(opcode)<<8 | uint16(value)
}

// PlanEntry is one result-plan tuple, spec.md section 3's Result-plan entry.
type PlanEntry struct {
	OutputIndex int
	OutputName  string
	InLoop      bool
	LoopCount   uint
	LoopSpan    uint
	Averaged    bool
}

// CompiledScript is one section's compiled output: the command word stream
// plus the result-plan describing how responses map back to columns.
type CompiledScript struct {
	Commands []uint16
	Plan     []PlanEntry
	Repeat   int
}

// CompileSection compiles one named section ("initialization" or
// "measurement") of a script into a command buffer and result-plan.
func CompileSection(src ScriptSource, section string) (*CompiledScript, error) {
	commands := src.CommandsOf(section)
	buf, plan, err := compileNodes(src, commands, false)
	if err != nil {
		return nil, err
	}
	return &CompiledScript{Commands: buf, Plan: plan, Repeat: src.Repeat(section)}, nil
}

// compileNodes walks one flat list of command/loop nodes. insideLoop is true
// when called recursively from inside a loop body, so a loop nested inside a
// loop is rejected with nested-loop rather than silently flattened.
func compileNodes(src ScriptSource, nodes []Node, insideLoop bool) ([]uint16, []PlanEntry, error) {
	var commands []uint16
	var plan []PlanEntry

	for _, n := range nodes {
		if n.Tag() == "loop" {
			if insideLoop {
				return nil, nil, newErr(ErrNestedLoop, "")
			}

			countStr, ok := src.Attr(n, "count")
			if !ok {
				return nil, nil, newErr(ErrBadScript, "loop missing count attribute")
			}
			count, err := strconv.ParseUint(countStr, 10, 16)
			if err != nil {
				return nil, nil, wrapErr(ErrBadScript, "loop count", err)
			}

			avgStr, ok := src.Attr(n, "average")
			if !ok {
				return nil, nil, newErr(ErrBadScript, "loop missing average attribute")
			}
			averaged := avgStr == "true" || avgStr == "1"

			commands = append(commands, createCommand(OpLoopBegin, byte(count)))
			bodyCmds, bodyPlan, err := compileNodes(src, src.LoopChildren(n), true)
			if err != nil {
				return nil, nil, err
			}
			commands = append(commands, bodyCmds...)
			commands = append(commands, createCommand(OpLoopEnd, 0))

			if len(bodyPlan) > 0 {
				bodyPlan[0].InLoop = true
				bodyPlan[0].LoopCount = uint(count)
				bodyPlan[0].LoopSpan = uint(len(bodyPlan))
				bodyPlan[0].Averaged = averaged
				for i := 1; i < len(bodyPlan); i++ {
					bodyPlan[i].InLoop = true
				}
			}
			plan = append(plan, bodyPlan...)
			continue
		}

		word, entry, contributesPlan, err := compileCommand(src, n)
		if err != nil {
			return nil, nil, err
		}
		commands = append(commands, word)
		if contributesPlan {
			plan = append(plan, entry)
		}
	}

	return commands, plan, nil
}

// compileCommand encodes a single <command> node into a command word and,
// when the opcode returns a value, a fresh (not-yet-in-loop) plan entry.
func compileCommand(src ScriptSource, n Node) (word uint16, entry PlanEntry, contributesPlan bool, err error) {
	typeStr, ok := src.Attr(n, "type")
	if !ok {
		return 0, PlanEntry{}, false, newErr(ErrBadScript, "command missing type attribute")
	}
	opcodeVal, parseErr := strconv.ParseUint(typeStr, 16, 8)
	if parseErr != nil {
		return 0, PlanEntry{}, false, wrapErr(ErrBadScript, "command type", parseErr)
	}

	info, lookupErr := Lookup(byte(opcodeVal))
	if lookupErr != nil {
		return 0, PlanEntry{}, false, lookupErr
	}
	if IsLoopBegin(info.Byte) || IsLoopEnd(info.Byte) {
		return 0, PlanEntry{}, false, newErr(ErrBadScript, "loop marker opcode used as a plain command")
	}

	var value byte
	if info.CarriesValue {
		valueStr, ok := src.Attr(n, "value")
		if !ok {
			return 0, PlanEntry{}, false, newErr(ErrBadScript, "command missing value attribute")
		}
		v, parseErr := strconv.ParseUint(valueStr, 16, 8)
		if parseErr != nil {
			return 0, PlanEntry{}, false, wrapErr(ErrBadScript, "command value", parseErr)
		}
		value = byte(v)
	}
	word = createCommand(info.Byte, value)

	if !info.ReturnsValue {
		return word, PlanEntry{}, false, nil
	}

	outputIndex := -1
	if s, ok := src.Attr(n, "outputIndex"); ok {
		v, parseErr := strconv.Atoi(s)
		if parseErr != nil {
			return 0, PlanEntry{}, false, wrapErr(ErrBadScript, "outputIndex", parseErr)
		}
		outputIndex = v
	}
	outputName := "unknown"
	if s, ok := src.Attr(n, "outputName"); ok {
		outputName = s
	}

	return word, PlanEntry{OutputIndex: outputIndex, OutputName: outputName}, true, nil
}
