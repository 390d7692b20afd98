package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers emitted instruction lines from worker threads in a
// strings.Builder. When the Flush or Close method is called the buffer is
// emptied and sent to the assigned output writer through channel c, so one
// function's instruction stream always reaches the output as a single burst.
type Writer struct {
	sb strings.Builder
	c  chan string
}

// -------------------
// ----- Globals -----
// -------------------

var wc chan string   // Write channel used for receiving data from worker threads.
var cc chan error    // Close channel used by main thread to signal to end write operations.
var dc chan struct{} // Done channel closed when the listener has drained all pending output.

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes the string s to the Writer's buffer as is.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Ins1 writes a one-line instruction using the operator and single operand.
func (w *Writer) Ins1(op, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s\n", op, rs1))
}

// Ins2 writes a one-line instruction using the operator, destination register
// and single source operand.
func (w *Writer) Ins2(op, rd, rs1 string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s\n", op, rd, rs1))
}

// Ins2c writes a one-line instruction like Ins2, followed by an annotation.
func (w *Writer) Ins2c(op, rd, rs1, comment string) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %s\t; %s\n", op, rd, rs1, comment))
}

// Ins2imm writes a one-line instruction using the operator, destination
// register and a signed immediate.
func (w *Writer) Ins2imm(op, rd string, imm int) {
	w.sb.WriteString(fmt.Sprintf("\t%s\t%s, %d\n", op, rd, imm))
}

// Label writes a one-line label with the given name.
func (w *Writer) Label(name string) {
	w.sb.WriteString(fmt.Sprintf("%s:\n", name))
}

// Comment writes a one-line annotation.
func (w *Writer) Comment(text string) {
	w.sb.WriteString(fmt.Sprintf("\t; %s\n", text))
}

// Flush empties the Writer's buffer and sends the buffer data to the
// designated output writer over the Writer's channel.
func (w *Writer) Flush() {
	w.c <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer's buffer and then detaches the Writer from its channel.
func (w *Writer) Close() {
	w.Flush()
	w.c = nil
}

// NewWriter returns a new Writer to be used by worker threads to write strings
// concurrently to the output buffer.
// Must not be called before main thread has called ListenWrite.
func NewWriter() Writer {
	return Writer{
		sb: strings.Builder{},
		c:  wc,
	}
}

// ReadSource reads source code from file or stdin.
// If the Options structure holds a string for source the file will be opened and read.
// Else the function waits for a short period for input on stdin. If no input on stdin is
// provided the function returns an error.
func ReadSource(opt Options) (string, error) {
	if len(opt.Src) > 0 {
		// Read from file.
		b, err := os.ReadFile(opt.Src)
		return string(b), err
	}

	// Read stdin.
	c := make(chan string)
	cerr := make(chan error)

	// Concurrently wait for input on stdin.
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil || errors.Is(err, io.EOF) {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	case err := <-cerr:
		return "", err
	}
}

// ListenWrite listens for worker thread outputs. The received data is written
// to out, or to stdout if out is <nil>. The function loops until a termination
// signal is sent using the Close function; pending bursts are drained before
// the listener stops, so everything flushed before Close is written.
func ListenWrite(t int, out io.Writer) {
	wc = make(chan string, t)
	cc = make(chan error, 1) // Make buffered to catch Close before listener is invoked.
	dc = make(chan struct{})
	if out == nil {
		out = os.Stdout
	}
	w := bufio.NewWriter(out)

	// Listen for input and termination signal.
	go func(wc chan string, cc chan error, dc chan struct{}) {
		defer close(dc)
		write := func(s string) {
			if _, err := w.WriteString(s); err != nil {
				fmt.Println(err)
			}
			if err := w.Flush(); err != nil {
				fmt.Println(err)
			}
		}
		for {
			select {
			case s := <-wc:
				write(s)
			case <-cc:
				// Drain bursts that were flushed before the close signal.
				for {
					select {
					case s := <-wc:
						write(s)
					default:
						return
					}
				}
			}
		}
	}(wc, cc, dc)
}

// Close sends the termination signal to the writer listener and blocks until
// all pending output has been written.
func Close() {
	cc <- nil
	<-dc
}
