package mv2

import (
	"io"
	"strconv"

	"github.com/charmbracelet/log"
)

// orchestrator.go - component H, host orchestrator. Grounded on
// original_source/.../MV2Host.cpp's main(): open the port (which resets the
// instrument), compile both scripts, run initialization once, then run the
// measurement script per the repeat policy, emitting one record per
// successful run and stopping cleanly on interrupt.

// RunResult is one measurement run's reconstructed output.
type RunResult struct {
	Headings []string
	Columns  [][]uint16
}

// Orchestrator ties the compiler, channel and de-interleaver together to run
// a compiled initialization+measurement script pair against an open channel.
type Orchestrator struct {
	channel *Channel
	log     *log.Logger

	initScript *CompiledScript
	measScript *CompiledScript
}

// NewOrchestrator compiles both sections of a script via src and binds them
// to an already-open channel.
func NewOrchestrator(channel *Channel, src ScriptSource, logger *log.Logger) (*Orchestrator, error) {
	initScript, err := CompileSection(src, "initialization")
	if err != nil {
		return nil, err
	}
	measScript, err := CompileSection(src, "measurement")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{channel: channel, log: logger, initScript: initScript, measScript: measScript}, nil
}

// RunInitialization transmits the initialization command buffer once and
// discards its results; spec.md section 4.H runs it exactly once regardless
// of its own repeat attribute.
func (o *Orchestrator) RunInitialization() error {
	_, err := o.exchange(o.initScript.Commands)
	return err
}

// MeasurementRepeat reports the compiled measurement section's repeat
// attribute, interpreted per this rework's repeat policy (see DESIGN.md):
// -1 (absent) means run once, 0 means run indefinitely, a positive value
// means exactly that many runs.
func (o *Orchestrator) MeasurementRepeat() int {
	return o.measScript.Repeat
}

// RunMeasurementOnce executes the measurement command buffer one time and
// de-interleaves the response into named columns.
func (o *Orchestrator) RunMeasurementOnce() (*RunResult, error) {
	words, err := o.exchange(o.measScript.Commands)
	if err != nil {
		return nil, err
	}

	columns := Deinterleave(words, o.measScript.Plan)
	var headings []string
	if len(columns) > 0 {
		headings = SynthesizeHeadings(len(columns)-1, o.measScript.Plan)
	}
	return &RunResult{Headings: headings, Columns: columns}, nil
}

// RunMeasurementLoop runs the measurement script according to
// MeasurementRepeat, invoking onResult after each successful run and
// stopping early if interrupted returns true or onResult returns an error.
func (o *Orchestrator) RunMeasurementLoop(interrupted func() bool, onResult func(*RunResult) error) error {
	repeat := o.MeasurementRepeat()
	if repeat == -1 {
		repeat = 1
	}

	for count := 0; repeat == 0 || count < repeat; count++ {
		if interrupted != nil && interrupted() {
			o.log.Info("interrupt received, stopping measurement loop")
			return nil
		}

		result, err := o.RunMeasurementOnce()
		if err != nil {
			return err
		}
		if err := onResult(result); err != nil {
			return err
		}
	}
	return nil
}

// exchange wraps a command buffer, transmits it, and reads back + validates
// the response, returning the result words on success.
func (o *Orchestrator) exchange(commands []uint16) ([]uint16, error) {
	frame := WrapRequest(commands)
	if err := o.channel.WriteAll(frame); err != nil {
		return nil, err
	}

	frameWords, err := o.channel.ReadResponseFrame()
	if err != nil {
		return nil, err
	}

	results, status, statusDetail, err := ParseResponseBody(frameWords)
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return nil, &Error{Kind: KindForStatus(status), Detail: strconv.Itoa(int(statusDetail))}
	}
	return results, nil
}
