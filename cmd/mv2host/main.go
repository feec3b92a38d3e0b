package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/michaelb1886/mv2"
	"gopkg.in/alecthomas/kingpin.v2"
)

// mv2host is the host CLI: compile a script, run it against an instrument
// over serial, print CSV to stdout and optionally persist an MXR record.
// Grounded on original_source/.../MV2Host.cpp's main(): same positional
// argument order, same ^C handling, same "stop cleanly on interrupt" loop.

const (
	softwareVersionMajor = 1
	softwareVersionMinor = 3
)

var (
	scriptPath = kingpin.Arg("script", "measurement script XML file").Required().String()
	schemaPath = kingpin.Arg("schema", "measurement script XSD file (accepted, not constraint-checked)").Required().String()
	portPath   = kingpin.Arg("port", "serial port device").Required().String()
	recordPath = kingpin.Arg("record", "optional MXR output file").String()
)

func main() {
	kingpin.Version(fmt.Sprintf("%d.%d", softwareVersionMajor, softwareVersionMinor))
	kingpin.Parse()

	logger := log.Default()

	if err := run(logger); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger) error {
	schemaFile, err := os.Open(*schemaPath)
	if err != nil {
		return err
	}
	schemaFile.Close()

	src, err := mv2.LoadScript(*scriptPath)
	if err != nil {
		return err
	}

	channel, err := mv2.OpenSerial(*portPath, logger)
	if err != nil {
		return err
	}
	defer channel.Close()

	orch, err := mv2.NewOrchestrator(channel, src, logger)
	if err != nil {
		return err
	}

	var interruptReceived atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logger.Info("interrupt received")
		interruptReceived.Store(true)
	}()

	if err := orch.RunInitialization(); err != nil {
		return err
	}

	var record *mv2.Record
	if *recordPath != "" {
		record = mv2.NewRecord(*recordPath)
	}

	return orch.RunMeasurementLoop(interruptReceived.Load, func(result *mv2.RunResult) error {
		printCSV(result)
		if record == nil {
			return nil
		}
		record.SetHeadings(result.Headings)
		record.AppendMeasurement(transpose(result.Columns))
		return record.Save()
	})
}

func printCSV(result *mv2.RunResult) {
	fmt.Println(strings.Join(result.Headings, ","))
	for _, row := range transpose(result.Columns) {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.FormatUint(uint64(v), 10)
		}
		fmt.Println(strings.Join(cells, ","))
	}
}

// transpose turns per-column vectors into per-row samples, padding short
// columns with nothing (rows only go as deep as the shortest column, since
// columns from sparsely contributing commands may differ in length).
func transpose(columns [][]uint16) [][]uint16 {
	if len(columns) == 0 {
		return nil
	}
	rows := len(columns[0])
	for _, c := range columns {
		if len(c) < rows {
			rows = len(c)
		}
	}
	out := make([][]uint16, rows)
	for r := 0; r < rows; r++ {
		row := make([]uint16, len(columns))
		for c := range columns {
			row[c] = columns[c][r]
		}
		out[r] = row
	}
	return out
}
