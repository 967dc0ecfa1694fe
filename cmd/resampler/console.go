package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"wbbcli/internal/operations"
)

const (
	ansiReset  = "\033[0m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
)

// consoleSink prints progress lines, coloured by severity when w is a
// terminal
type consoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w, color: isTerminal(w)}
}

func (c *consoleSink) Report(message string, severity operations.Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.color {
		fmt.Fprintln(c.w, message)
		return
	}
	switch severity {
	case operations.SeverityWarn:
		fmt.Fprintln(c.w, ansiYellow+message+ansiReset)
	case operations.SeverityError:
		fmt.Fprintln(c.w, ansiRed+message+ansiReset)
	default:
		fmt.Fprintln(c.w, message)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
