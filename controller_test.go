package headlessterm

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

// loopbackPipe is an io.ReadWriter test double: writes collect in one
// buffer for inspection and reads drain a separate preloaded buffer, with
// no real I/O involved.
type loopbackPipe struct {
	written bytes.Buffer
	toRead  *bytes.Buffer
}

func newLoopbackPipe(preloaded []byte) *loopbackPipe {
	return &loopbackPipe{toRead: bytes.NewBuffer(preloaded)}
}

func (l *loopbackPipe) Read(p []byte) (int, error)  { return l.toRead.Read(p) }
func (l *loopbackPipe) Write(p []byte) (int, error) { return l.written.Write(p) }

func TestControllerPumpFeedsTerminal(t *testing.T) {
	term := newTestTerminal(80, 24)
	pipe := newLoopbackPipe([]byte("hello"))
	ctrl := NewController(term, pipe)

	if err := ctrl.Pump(context.Background()); err != nil {
		t.Fatalf("Pump returned error: %v", err)
	}
	if got := term.RowText(0); got != "hello" {
		t.Errorf("RowText(0) = %q, want %q", got, "hello")
	}
}

func TestControllerPumpRespectsContextCancellation(t *testing.T) {
	term := newTestTerminal(80, 24)
	r, w := io.Pipe()
	pipe := struct {
		io.Reader
		io.Writer
	}{Reader: r, Writer: &bytes.Buffer{}}
	ctrl := NewController(term, pipe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Pump(ctx) }()
	cancel()
	// Pump checks the context between reads; feed a byte so a Read blocked
	// on the idle pipe returns and the loop observes the cancellation.
	go w.Write([]byte("x"))

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Pump error = %v, want %v", err, context.Canceled)
		}
	case <-time.After(time.Second):
		t.Fatal("Pump did not return after context cancellation")
	}
}

func TestControllerSendKeyEncodesThroughCurrentMode(t *testing.T) {
	term := newTestTerminal(80, 24)
	pipe := newLoopbackPipe(nil)
	ctrl := NewController(term, pipe)

	if err := ctrl.SendKey(KeyEvent{Key: KeyUp}); err != nil {
		t.Fatalf("SendKey returned error: %v", err)
	}
	if got := pipe.written.String(); got != "\x1b[A" {
		t.Errorf("normal-mode SendKey wrote %q, want %q", got, "\x1b[A")
	}

	pipe.written.Reset()
	term.WriteString("\x1b[?1h") // DECCKM on
	if err := ctrl.SendKey(KeyEvent{Key: KeyUp}); err != nil {
		t.Fatalf("SendKey returned error: %v", err)
	}
	if got := pipe.written.String(); got != "\x1bOA" {
		t.Errorf("application-mode SendKey wrote %q, want %q", got, "\x1bOA")
	}
}

func TestControllerSendKeyNoOutputForUnmappedKey(t *testing.T) {
	term := newTestTerminal(80, 24)
	pipe := newLoopbackPipe(nil)
	ctrl := NewController(term, pipe)

	if err := ctrl.SendKey(KeyEvent{Key: KeyNone}); err != nil {
		t.Fatalf("SendKey returned error: %v", err)
	}
	if pipe.written.Len() != 0 {
		t.Errorf("expected no bytes for KeyNone, got %q", pipe.written.String())
	}
}

func TestControllerPaste(t *testing.T) {
	term := newTestTerminal(80, 24)
	pipe := newLoopbackPipe(nil)
	ctrl := NewController(term, pipe)

	if err := ctrl.Paste("plain"); err != nil {
		t.Fatal(err)
	}
	if got := pipe.written.String(); got != "plain" {
		t.Errorf("unbracketed paste wrote %q", got)
	}

	pipe.written.Reset()
	term.WriteString("\x1b[?2004h")
	if err := ctrl.Paste("guarded"); err != nil {
		t.Fatal(err)
	}
	if got := pipe.written.String(); got != "\x1b[200~guarded\x1b[201~" {
		t.Errorf("bracketed paste wrote %q", got)
	}
}

func TestControllerResizeWithoutPTY(t *testing.T) {
	term := newTestTerminal(80, 24)
	pipe := newLoopbackPipe(nil)
	ctrl := NewController(term, pipe)

	if err := ctrl.Resize(100, 30); err != nil {
		t.Fatalf("Resize returned error: %v", err)
	}
	if term.Cols() != 100 || term.Rows() != 30 {
		t.Errorf("term size = %dx%d, want 100x30", term.Cols(), term.Rows())
	}
}

func TestControllerSelectedText(t *testing.T) {
	term := newTestTerminal(10, 4)
	term.WriteString("hello all\r\nsecond\r\nthird")
	ctrl := NewController(term, newLoopbackPipe(nil))

	got := ctrl.SelectedText(SelectionPoint{0, 6}, SelectionPoint{1, 2})
	if got != "all\nsec" {
		t.Errorf("selection = %q, want %q", got, "all\nsec")
	}

	// Reversed points normalize.
	rev := ctrl.SelectedText(SelectionPoint{1, 2}, SelectionPoint{0, 6})
	if rev != got {
		t.Errorf("reversed selection = %q", rev)
	}
}

func TestControllerSelectedTextJoinsWrappedRows(t *testing.T) {
	term := newTestTerminal(5, 3)
	term.WriteString("ABCDEF") // wraps after E
	ctrl := NewController(term, newLoopbackPipe(nil))

	got := ctrl.SelectedText(SelectionPoint{0, 0}, SelectionPoint{1, 0})
	if got != "ABCDEF" {
		t.Errorf("wrapped selection = %q, want %q (no newline at soft wrap)", got, "ABCDEF")
	}
}

func TestControllerSelectedTextSkipsWideContinuation(t *testing.T) {
	term := newTestTerminal(10, 2)
	term.WriteString("a中b")
	ctrl := NewController(term, newLoopbackPipe(nil))

	got := ctrl.SelectedText(SelectionPoint{0, 0}, SelectionPoint{0, 3})
	if got != "a中b" {
		t.Errorf("selection = %q, want %q", got, "a中b")
	}
}
