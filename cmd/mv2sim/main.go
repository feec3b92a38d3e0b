package main

import (
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/michaelb1886/mv2"
	"github.com/michaelb1886/mv2/instrument"
	"gopkg.in/alecthomas/kingpin.v2"
)

// mv2sim stands in for the instrument: it opens a serial port (typically one
// end of a virtual pty pair during development) and services request frames
// with the real VM against a HAL, so mv2host can be exercised without real
// hardware attached. Grounded on MV2ScriptUtility.cpp's ExecuteScript being
// the instrument's whole command loop, and on how mv2host's own orchestrator
// opens its side of the same wire format.

var (
	devicePath = kingpin.Flag("device", "serial port device this simulator listens on").Required().String()
	board      = kingpin.Flag("board", "HAL backend: sim or periph").Default("sim").Enum("sim", "periph")
	capacity   = kingpin.Flag("capacity", "output scratch buffer word capacity").Default("64").Int()
)

func main() {
	kingpin.Parse()
	logger := log.Default()

	if err := run(logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	if *board == "periph" {
		return newErr("periph board requires wiring a real spi.Conn/gpio.PinOut at a call site with hardware present; mv2sim only drives the sim HAL")
	}

	channel, err := mv2.OpenSerial(*devicePath, logger)
	if err != nil {
		return err
	}
	defer channel.Close()

	hal := instrument.NewSimHAL()
	vm := instrument.NewVM(hal)

	logger.Info("mv2sim ready", "device", *devicePath, "board", *board)

	for {
		frameWords, err := channel.ReadRequestFrame()
		if err != nil {
			return err
		}

		commands, err := mv2.ParseRequestBody(frameWords)
		if err != nil {
			return err
		}

		out, runErr := vm.Run(commands, *capacity)
		var kind mv2.ErrorKind
		var detail uint16
		if runErr != nil {
			if e, ok := runErr.(*mv2.Error); ok {
				kind = e.Kind
				if n, convErr := strconv.Atoi(e.Detail); convErr == nil {
					detail = uint16(n)
				}
			}
		}

		response := instrument.BuildResponse(out, kind, detail)
		if err := channel.WriteAll(mv2.EncodeWords(response)); err != nil {
			return err
		}
	}
}

func newErr(msg string) error {
	return &mv2.Error{Kind: mv2.ErrBadScript, Detail: msg}
}
