// Package headlessterm is a terminal emulator without a screen: it
// consumes the byte stream a PTY produces, interprets the ANSI/DEC/xterm
// escape repertoire plus kitty graphics, and maintains the grid of styled
// cells, cursor, scrollback, modes, and tab stops that a renderer or test
// harness reads back row by row.
//
// Feed bytes with Write; read state with Cursor, Line, RowText, DirtyRows
// and friends. Observers configured at construction fire synchronously as
// the stream is consumed:
//
//	term := headlessterm.NewTerminal(headlessterm.Config{
//		Cols: 80, Rows: 24, Scrollback: 1000,
//		Observers: headlessterm.Observers{
//			Title: func(s string) { fmt.Println("title:", s) },
//		},
//	})
//	term.WriteString("\x1b[1;31mhello\x1b[0m\r\n")
//
// Parsing is delegated to github.com/danielgatis/go-ansicode; this package
// is the executor behind it and the screen model underneath. Controller
// binds a Terminal to a live byte pipe (a creack/pty process or a
// WebSocket) and encodes key events for the return path.
//
// Everything runs synchronously on the Write caller's goroutine. A Write
// issued from inside an observer callback is buffered and applied after
// the outer call unwinds. Hostile or malformed input is absorbed, never
// surfaced: bad UTF-8 prints U+FFFD, unknown sequences are dropped, and
// out-of-range parameters clamp.
package headlessterm
