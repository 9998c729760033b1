package main

import (
	"fmt"
	"io"
	"strings"
)

const (
	lcdWidth  = 8
	lcdHeight = 2
)

// termLCD renders the 2x8 character panel onto a terminal, reprinting both
// lines after every change. It stands in for the HD44780 driver on hosts
// without the hardware.
type termLCD struct {
	w     io.Writer
	lines [lcdHeight][]byte
	x, y  int
}

func newTermLCD(w io.Writer) *termLCD {
	l := &termLCD{w: w}
	l.Clear()
	return l
}

func (l *termLCD) Clear() error {
	for i := range l.lines {
		l.lines[i] = []byte(strings.Repeat(" ", lcdWidth))
	}
	l.x, l.y = 0, 0
	return nil
}

func (l *termLCD) GotoXY(x, y int) error {
	if x < 0 || x >= lcdWidth || y < 0 || y >= lcdHeight {
		return fmt.Errorf("lcd: position (%d,%d) out of bounds", x, y)
	}
	l.x, l.y = x, y
	return nil
}

func (l *termLCD) Puts(s string) error {
	for i := 0; i < len(s); i++ {
		if l.x >= lcdWidth {
			l.x = 0
			l.y++
		}
		if l.y >= lcdHeight {
			break
		}
		l.lines[l.y][l.x] = s[i]
		l.x++
	}
	_, err := fmt.Fprintf(l.w, "\r[%s|%s]", l.lines[0], l.lines[1])
	return err
}
