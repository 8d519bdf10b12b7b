package headlessterm

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
)

// Controller is a thin binding between a Terminal and an external byte
// pipe (a PTY, a WebSocket connection, a recorded session). It pumps
// inbound bytes into the terminal, writes key encodings and pasted text
// back out, and extracts selected text for a front end. Replies the
// terminal itself produces, such as device reports, go to the terminal's
// DataOut observer; the Controller does not forward them to the pipe. It
// holds no screen state of its own.
type Controller struct {
	term       *Terminal
	pipe       io.ReadWriter
	pty        *os.File
	cmd        *exec.Cmd
	keyEncoder *KeyEncoder
}

// NewController binds term to an arbitrary byte pipe.
func NewController(term *Terminal, pipe io.ReadWriter) *Controller {
	return &Controller{term: term, pipe: pipe, keyEncoder: NewKeyEncoder()}
}

// StartPTY launches cmd attached to a new pseudo-terminal sized to match
// term's current dimensions, and returns a Controller bound to it.
func StartPTY(term *Terminal, cmd *exec.Cmd) (*Controller, error) {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(term.Rows()),
		Cols: uint16(term.Cols()),
	})
	if err != nil {
		return nil, err
	}
	return &Controller{term: term, pipe: ptmx, pty: ptmx, cmd: cmd, keyEncoder: NewKeyEncoder()}, nil
}

// Pump reads from the pipe and feeds bytes into the terminal until the
// pipe reaches EOF, ctx is cancelled, or a read error occurs.
func (c *Controller) Pump(ctx context.Context) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := c.pipe.Read(buf)
		if n > 0 {
			_, _ = c.term.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// SendKey encodes ev according to the terminal's current cursor-key mode
// and writes the resulting bytes to the pipe.
func (c *Controller) SendKey(ev KeyEvent) error {
	seq := c.keyEncoder.Encode(ev, c.term.Mode(ModeAppCursorKeys))
	if len(seq) == 0 {
		return nil
	}
	_, err := c.pipe.Write(seq)
	return err
}

// SendText writes raw bytes to the pipe unencoded.
func (c *Controller) SendText(data []byte) error {
	_, err := c.pipe.Write(data)
	return err
}

// Paste sends text to the application, wrapped in the bracketed-paste
// markers when that mode is on.
func (c *Controller) Paste(text string) error {
	if c.term.Mode(ModeBracketedPaste) {
		text = "\x1b[200~" + text + "\x1b[201~"
	}
	return c.SendText([]byte(text))
}

// Resize propagates a size change to the terminal and, if bound to a real
// PTY, to the kernel pty ioctl as well.
func (c *Controller) Resize(cols, rows int) error {
	c.term.Resize(cols, rows)
	if c.pty != nil {
		return pty.Setsize(c.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	}
	return nil
}

// Close releases the underlying PTY, if any, and waits for the child
// process.
func (c *Controller) Close() error {
	var err error
	if c.pty != nil {
		err = c.pty.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		if waitErr := c.cmd.Wait(); waitErr != nil && err == nil {
			err = waitErr
		}
	}
	return err
}

// SelectionPoint addresses one cell of the visible screen for text
// extraction, 0-based.
type SelectionPoint struct {
	Row, Col int
}

// SelectedText extracts the text between two points, both inclusive, in
// reading order. Rows joined by a soft wrap concatenate without a
// newline; hard line breaks insert one. The points may arrive in either
// order.
func (c *Controller) SelectedText(a, b SelectionPoint) string {
	if b.Row < a.Row || (b.Row == a.Row && b.Col < a.Col) {
		a, b = b, a
	}

	var sb strings.Builder
	for row := a.Row; row <= b.Row; row++ {
		line := c.term.Line(row)
		if len(line.Cells) == 0 {
			continue
		}
		from, to := 0, len(line.Cells)-1
		if row == a.Row {
			from = clamp(a.Col, 0, to)
		}
		if row == b.Row {
			to = clamp(b.Col, 0, to)
		}

		text := make([]rune, 0, to-from+1)
		for col := from; col <= to; col++ {
			cell := line.Cells[col]
			if cell.IsContinuation() {
				continue
			}
			text = append(text, cell.Rune)
		}
		// Trailing blanks on a hard-broken row are padding, not content.
		end := len(text)
		if !line.Wrapped {
			for end > 0 && text[end-1] == ' ' {
				end--
			}
		}
		sb.WriteString(string(text[:end]))
		if row < b.Row && !line.Wrapped {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// WebSocketPipe adapts a gorilla/websocket connection to io.ReadWriter so
// a framed WebSocket byte pipe can back a Controller. Each Write is sent
// as one binary message; reads buffer the remainder of a message across
// calls.
type WebSocketPipe struct {
	conn    *websocket.Conn
	pending []byte
}

// NewWebSocketPipe wraps conn for use as a Controller's pipe.
func NewWebSocketPipe(conn *websocket.Conn) *WebSocketPipe {
	return &WebSocketPipe{conn: conn}
}

func (w *WebSocketPipe) Read(p []byte) (int, error) {
	for len(w.pending) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.pending = data
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *WebSocketPipe) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

var _ io.ReadWriter = (*WebSocketPipe)(nil)
