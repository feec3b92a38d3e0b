package mv2

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jacobsa/go-serial/serial"
)

// serial.go - opaque byte transport with timeouts, component C. Adapted from
// spirilis-smacbase/npi_phy.go's NewSerialPHY (same jacobsa/go-serial options
// struct), extended with the reset-on-open and purge behavior spec.md section
// 4.C requires and that the teacher's radio link (full-duplex, no reset-on-open
// convention) never needed.

const (
	// DefaultBaud matches spec.md section 4.C: 57600 baud, 8-N-1, no hardware flow control.
	DefaultBaud = 57600
	// RebootWait is how long the instrument takes to reboot after DTR toggles on open.
	RebootWait = 2 * time.Second
	// ReadTimeout is the minimum read deadline spec.md section 4.C requires.
	ReadTimeout = 20 * time.Second
)

// Channel is the serial transport the orchestrator and its tests exchange frames
// over. It wraps any io.ReadWriteCloser so a real port and a loopback test double
// (spirilis-smacbase/npi_test.go's TestLink plays the same role) satisfy it alike.
type Channel struct {
	rwc     io.ReadWriteCloser
	timeout time.Duration
	log     *log.Logger
}

// OpenSerial opens the named serial port at DefaultBaud, 8-N-1, no flow control,
// resets the instrument (DTR toggles low-to-high on most POSIX opens), waits for
// reboot, and purges whatever noise accumulated in the buffers during reset.
func OpenSerial(path string, logger *log.Logger) (*Channel, error) {
	opts := serial.OpenOptions{
		PortName:              path,
		BaudRate:              DefaultBaud,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 100,
		MinimumReadSize:       0,
	}

	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, wrapErr(ErrIO, "open serial port "+path, err)
	}

	c := NewChannel(rwc, ReadTimeout, logger)
	c.log.Debugf("opened %s, waiting %s for instrument reboot", path, RebootWait)
	time.Sleep(RebootWait)
	c.purge()
	return c, nil
}

// NewChannel wraps an already-open transport without performing the reset
// sequence; OpenSerial calls it once the real port is open, and tests use it
// to wrap in-memory doubles.
func NewChannel(rwc io.ReadWriteCloser, timeout time.Duration, logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Channel{rwc: rwc, timeout: timeout, log: logger}
}

// purge drains any bytes sitting in the input buffer left over from reset, by
// reading until a short read yields nothing within a brief window.
func (c *Channel) purge() {
	buf := make([]byte, 256)
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		done := make(chan struct{})
		var n int
		go func() {
			n, _ = c.rwc.Read(buf)
			close(done)
		}()
		select {
		case <-done:
			if n == 0 {
				return
			}
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

// WriteAll transmits the whole buffer or fails; a short write is retried until
// the buffer is exhausted or the transport errors.
func (c *Channel) WriteAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.rwc.Write(b)
		if err != nil {
			return wrapErr(ErrIO, "write", err)
		}
		b = b[n:]
	}
	return nil
}

// ReadExact blocks until exactly n bytes arrive or the channel's deadline expires.
func (c *Channel) ReadExact(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	deadline := time.Now().Add(c.timeout)
	for len(out) < n {
		if time.Now().After(deadline) {
			return nil, newErr(ErrIO, "read timeout")
		}
		buf := make([]byte, n-len(out))
		read, err := c.rwc.Read(buf)
		if err != nil {
			return nil, wrapErr(ErrIO, "read", err)
		}
		out = append(out, buf[:read]...)
	}
	return out, nil
}

// ReadResponseFrame performs the two-phase read spec.md section 4.C describes:
// first word_width bytes for the header word, then the remainder the header
// declares, returning the full frame as words.
func (c *Channel) ReadResponseFrame() ([]uint16, error) {
	headerBytes, err := c.ReadExact(wordWidth)
	if err != nil {
		return nil, err
	}
	header := DecodeWords(headerBytes)[0]

	frameLen, err := ParseResponseHeader(header)
	if err != nil {
		return nil, err
	}

	rest, err := c.ReadExact(frameLen - wordWidth)
	if err != nil {
		return nil, err
	}

	return DecodeWords(append(headerBytes, rest...)), nil
}

// ReadRequestFrame performs the instrument side's mirror of ReadResponseFrame:
// two-phase read of a request frame (header word, then the declared
// remainder), returning the full frame as words.
func (c *Channel) ReadRequestFrame() ([]uint16, error) {
	headerBytes, err := c.ReadExact(wordWidth)
	if err != nil {
		return nil, err
	}
	header := DecodeWords(headerBytes)[0]

	frameLen, err := ParseResponseHeader(header)
	if err != nil {
		return nil, err
	}

	rest, err := c.ReadExact(frameLen - wordWidth)
	if err != nil {
		return nil, err
	}

	return DecodeWords(append(headerBytes, rest...)), nil
}

// Close releases the underlying transport.
func (c *Channel) Close() error {
	return c.rwc.Close()
}
