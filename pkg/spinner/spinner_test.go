package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

// syncBuffer guards a bytes.Buffer shared with the animation goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndCleansUp(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	s := New(&out, "Reading hotspots")
	s.interval = time.Millisecond

	s.Start()
	s.Start() // second start is ignored
	time.Sleep(30 * time.Millisecond)
	s.Stop()
	s.Stop()

	got := out.String()
	assert.True(t, strings.HasPrefix(got, hideCursor+"\r"+frames[0]+" Reading hotspots"))
	assert.True(t, strings.HasSuffix(got, clearLine+showCursor))
	assert.Equal(t, 1, strings.Count(got, showCursor))
	assert.Greater(t, strings.Count(got, "Reading hotspots"), 1, "frames advance while running")
}

func TestNilSpinnerIsNoop(t *testing.T) {
	t.Parallel()

	var s *Spinner
	assert.NotPanics(t, func() {
		s.Start()
		s.Stop()
	})
}

func TestForTerminalSkipsNonTerminals(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ForTerminal(&bytes.Buffer{}, "x"))
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	New(&out, "idle").Stop()
	assert.Empty(t, out.String())
}
