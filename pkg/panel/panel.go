// Package panel holds the front-panel display cache. The control loop
// pushes values into the cache every cycle; a separate repaint goroutine
// paints the cache onto the LCD when notified. Character-set rendering and
// the byte-level bus protocol live in the LCD driver, not here.
package panel

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/chewxy/math32"
)

// Display geometry: 2 lines of 8 characters, values in the left column,
// unit labels in the right.
const (
	displayWidth = 8
	columnOffset = displayWidth - 2
)

// blank is rendered in place of a value when it is not applicable
// (output off reports NaN watts).
const blank = "-----"

// LCD is the character display surface the repaint loop draws on.
type LCD interface {
	Clear() error
	GotoXY(x, y int) error
	Puts(s string) error
}

// Cache is the RAM mirror of what the LCD should show.
type Cache struct {
	mu        sync.Mutex
	watts     string
	vlim      string
	needClear bool

	repaint chan struct{}
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		watts:     blank,
		vlim:      blank,
		needClear: true,
		repaint:   make(chan struct{}, 1),
	}
}

// Set formats watts/vlim into the cache. NaN renders as dashes.
// Reports whether the rendered text changed, i.e. a repaint is needed.
//
// The reference design compared raw floats, which always flags a repaint
// while the output is off (NaN never compares equal); comparing rendered
// strings keeps the dedup working in that state too.
func (c *Cache) Set(watts, vlim float32) bool {
	w := blank
	if !math32.IsNaN(watts) && !math32.IsInf(watts, 0) {
		w = fmt.Sprintf("%1.3f", watts)
	}
	v := blank
	if !math32.IsNaN(vlim) && !math32.IsInf(vlim, 0) {
		v = fmt.Sprintf("%1.1f", vlim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	changed := w != c.watts || v != c.vlim
	c.watts = w
	c.vlim = v
	return changed
}

// Strings returns the rendered value columns.
func (c *Cache) Strings() (watts, vlim string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watts, c.vlim
}

// Repaint queues a hardware repaint. Call after all desired changes have
// been submitted to the cache. Non-blocking; coalesces with a pending one.
func (c *Cache) Repaint() {
	select {
	case c.repaint <- struct{}{}:
	default:
	}
}

// RunRepaints paints the cache onto lcd whenever a repaint is queued,
// until ctx is cancelled. Runs on its own goroutine.
func (c *Cache) RunRepaints(ctx context.Context, lcd LCD) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.repaint:
			if err := c.paint(lcd); err != nil {
				log.Printf("panel: repaint failed: %v", err)
			}
		}
	}
}

func (c *Cache) paint(lcd LCD) error {
	c.mu.Lock()
	watts, vlim := c.watts, c.vlim
	clear := c.needClear
	c.needClear = false
	c.mu.Unlock()

	if clear {
		if err := lcd.Clear(); err != nil {
			return err
		}
	} else if err := lcd.GotoXY(0, 0); err != nil {
		return err
	}
	if err := lcd.Puts(watts); err != nil {
		return err
	}
	if clear {
		if err := lcd.GotoXY(columnOffset, 0); err != nil {
			return err
		}
		if err := lcd.Puts("W"); err != nil {
			return err
		}
	}
	if err := lcd.GotoXY(0, 1); err != nil {
		return err
	}
	if err := lcd.Puts(vlim); err != nil {
		return err
	}
	if clear {
		if err := lcd.GotoXY(columnOffset, 1); err != nil {
			return err
		}
		if err := lcd.Puts("V"); err != nil {
			return err
		}
	}
	return nil
}

// Message clears the screen and shows a raw string, used during boot.
// The next repaint will clear it again.
func (c *Cache) Message(lcd LCD, s string) {
	c.mu.Lock()
	c.needClear = true
	c.mu.Unlock()
	if err := lcd.Clear(); err != nil {
		log.Printf("panel: message failed: %v", err)
		return
	}
	if err := lcd.Puts(s); err != nil {
		log.Printf("panel: message failed: %v", err)
	}
}
