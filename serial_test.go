package mv2

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLink is an in-memory io.ReadWriteCloser double, modeled on
// spirilis-smacbase/npi_test.go's TestLink: canned inbound bytes plus a buffer
// capturing whatever gets written.
type fakeLink struct {
	mu      sync.Mutex
	inbound []byte
	written []byte
	closed  bool
}

func (f *fakeLink) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	if len(f.inbound) == 0 {
		return 0, nil
	}
	n := copy(p, f.inbound)
	f.inbound = f.inbound[n:]
	return n, nil
}

func (f *fakeLink) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLink) feed(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, b...)
}

func TestChannelWriteAll(t *testing.T) {
	link := &fakeLink{}
	c := NewChannel(link, time.Second, nil)
	require.NoError(t, c.WriteAll([]byte{1, 2, 3}))
	assert.Equal(t, []byte{1, 2, 3}, link.written)
}

func TestChannelReadExactWaitsForAllBytes(t *testing.T) {
	link := &fakeLink{}
	c := NewChannel(link, time.Second, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		link.feed([]byte{0xAA, 0xBB})
	}()

	got, err := c.ReadExact(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)
}

func TestChannelReadExactTimesOut(t *testing.T) {
	link := &fakeLink{}
	c := NewChannel(link, 20*time.Millisecond, nil)

	_, err := c.ReadExact(4)
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrIO, e.Kind)
}

func TestChannelReadResponseFrameTwoPhase(t *testing.T) {
	link := &fakeLink{}
	c := NewChannel(link, time.Second, nil)

	frame := wrapResponse([]uint16{0x1111, 0x2222}, 0, 0)
	link.feed(EncodeWords(frame))

	got, err := c.ReadResponseFrame()
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestChannelClose(t *testing.T) {
	link := &fakeLink{}
	c := NewChannel(link, time.Second, nil)
	require.NoError(t, c.Close())
	assert.True(t, link.closed)
}
