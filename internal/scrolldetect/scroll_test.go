package scrolldetect

import (
	"testing"
	"time"

	"github.com/ikigai/ikigai/internal/testutil"
)

func TestProcessArrowBurstWithinThreshold(t *testing.T) {
	d := New()
	base := time.Now()

	event, _ := d.ProcessArrow(Down, base)
	testutil.RequireEqual(t, event, EventNone, "first arrow should hold")

	event, dir := d.ProcessArrow(Down, base.Add(BurstThreshold))
	testutil.RequireEqual(t, event, EventScroll, "second arrow within threshold is a scroll")
	testutil.RequireEqual(t, dir, Down, "scroll direction should match pending")
}

func TestProcessArrowSlowIsTwoKeyEvents(t *testing.T) {
	d := New()
	base := time.Now()

	d.ProcessArrow(Up, base)
	event, dir := d.ProcessArrow(Up, base.Add(BurstThreshold+time.Millisecond))
	testutil.RequireEqual(t, event, EventArrow, "arrow past threshold flushes as a key press")
	testutil.RequireEqual(t, dir, Up, "flushed direction should be the first arrow")
}

func TestAbsorbingSwallowsFurtherArrows(t *testing.T) {
	d := New()
	base := time.Now()

	d.ProcessArrow(Down, base)
	d.ProcessArrow(Down, base.Add(time.Millisecond))
	event, _ := d.ProcessArrow(Down, base.Add(2*time.Millisecond))
	testutil.RequireEqual(t, event, EventAbsorbed, "arrows during an active burst are absorbed")
}

func TestCheckTimeoutFlushesWaitingArrow(t *testing.T) {
	d := New()
	base := time.Now()
	d.ProcessArrow(Down, base)

	event, dir := d.CheckTimeout(base.Add(BurstThreshold + time.Millisecond))
	testutil.RequireEqual(t, event, EventArrow, "timeout past threshold flushes the held arrow")
	testutil.RequireEqual(t, dir, Down, "flushed direction should match the held arrow")
}

func TestCheckTimeoutAbsorbingReturnsToIdleSilently(t *testing.T) {
	d := New()
	base := time.Now()
	d.ProcessArrow(Down, base)
	d.ProcessArrow(Down, base.Add(time.Millisecond))

	event, _ := d.CheckTimeout(base.Add(BurstThreshold + 2*time.Millisecond))
	testutil.RequireEqual(t, event, EventNone, "absorbing timeout produces no event")

	// A fresh arrow after the silent reset should start disambiguation again.
	event, _ = d.ProcessArrow(Up, base.Add(BurstThreshold+3*time.Millisecond))
	testutil.RequireEqual(t, event, EventNone, "detector should be idle again after the timeout")
}

func TestFlushOnNonArrowInput(t *testing.T) {
	d := New()
	base := time.Now()
	d.ProcessArrow(Down, base)

	event, dir := d.Flush()
	testutil.RequireEqual(t, event, EventArrow, "flush should emit the pending arrow")
	testutil.RequireEqual(t, dir, Down, "flushed direction should match pending")

	event, _ = d.Flush()
	testutil.RequireEqual(t, event, EventNone, "flushing an idle detector is a no-op")
}

func TestNextTimeoutReportsRemainingWindow(t *testing.T) {
	d := New()
	base := time.Now()
	if _, ok := d.NextTimeout(base); ok {
		t.Fatalf("idle detector should report no pending timeout")
	}

	d.ProcessArrow(Down, base)
	remaining, ok := d.NextTimeout(base)
	testutil.RequireTrue(t, ok, "waiting detector should report a timeout")
	testutil.RequireTrue(t, remaining <= BurstThreshold, "remaining window should not exceed the threshold")
}
