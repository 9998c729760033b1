package panel

import (
	"context"
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptLCD records the draw calls the repaint loop makes.
type scriptLCD struct {
	ops []string
}

func (l *scriptLCD) Clear() error {
	l.ops = append(l.ops, "clear")
	return nil
}

func (l *scriptLCD) GotoXY(x, y int) error {
	l.ops = append(l.ops, "goto")
	return nil
}

func (l *scriptLCD) Puts(s string) error {
	l.ops = append(l.ops, "puts:"+s)
	return nil
}

func TestSetReportsChanges(t *testing.T) {
	c := New()

	assert.True(t, c.Set(1.234, 5.0), "first value is a change")
	assert.False(t, c.Set(1.234, 5.0), "same value needs no repaint")
	assert.True(t, c.Set(1.235, 5.0))
	assert.True(t, c.Set(1.235, 5.5))
}

func TestSetRendersNaNAsDashes(t *testing.T) {
	c := New()

	c.Set(math32.NaN(), 5.0)
	watts, vlim := c.Strings()
	assert.Equal(t, "-----", watts)
	assert.Equal(t, "5.0", vlim)

	// Repeated NaN is not a change; raw float compare would flag one.
	assert.False(t, c.Set(math32.NaN(), 5.0))
}

func TestSetFormatsColumns(t *testing.T) {
	c := New()

	c.Set(1.2, 7.25)
	watts, vlim := c.Strings()
	assert.Equal(t, "1.200", watts)
	assert.Equal(t, "7.2", vlim)
}

func TestRepaintCoalesces(t *testing.T) {
	c := New()
	c.Repaint()
	c.Repaint()
	c.Repaint()

	assert.Len(t, c.repaint, 1)
}

func TestRunRepaintsPaintsCache(t *testing.T) {
	c := New()
	lcd := &scriptLCD{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.RunRepaints(ctx, lcd)
	}()

	c.Set(1.5, 5.0)
	c.Repaint()

	require.Eventually(t, func() bool {
		return len(lcd.ops) > 0
	}, time.Second, time.Millisecond)

	cancel()
	<-done

	// First paint clears and draws both value columns with unit labels.
	assert.Contains(t, lcd.ops, "clear")
	assert.Contains(t, lcd.ops, "puts:1.500")
	assert.Contains(t, lcd.ops, "puts:W")
	assert.Contains(t, lcd.ops, "puts:5.0")
	assert.Contains(t, lcd.ops, "puts:V")
}

func TestMessage(t *testing.T) {
	c := New()
	lcd := &scriptLCD{}

	c.Message(lcd, "Init...")
	assert.Equal(t, []string{"clear", "puts:Init..."}, lcd.ops)
}
