package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextWithin(t *testing.T, sub *Subscription, d time.Duration) (Event, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return sub.Next(ctx)
}

func TestBus(t *testing.T) {
	t.Run("DeliversInOrder", func(t *testing.T) {
		bus := NewBus(10)
		sub := bus.Subscribe()
		defer sub.Cancel()

		bus.Publish(Event{Stage: StageScanStart, Level: LevelInfo})
		bus.Publish(Event{Stage: StageScanComplete, Level: LevelInfo})

		ev, ok := nextWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageScanStart, ev.Stage)
		ev, ok = nextWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageScanComplete, ev.Stage)
	})

	t.Run("LateSubscriberReplaysHistory", func(t *testing.T) {
		bus := NewBus(10)
		bus.Publish(Event{Stage: StageScanStart, Level: LevelInfo})
		bus.Publish(Event{Stage: StageScanComplete, Level: LevelInfo})

		sub := bus.Subscribe()
		defer sub.Cancel()
		bus.Publish(Event{Stage: StageFileProcessing, Level: LevelInfo})

		var stages []Stage
		for i := 0; i < 3; i++ {
			ev, ok := nextWithin(t, sub, time.Second)
			require.True(t, ok)
			stages = append(stages, ev.Stage)
		}
		assert.Equal(t, []Stage{StageScanStart, StageScanComplete, StageFileProcessing}, stages)
	})

	t.Run("TerminalEventClosesStream", func(t *testing.T) {
		bus := NewBus(10)
		sub := bus.Subscribe()
		defer sub.Cancel()

		bus.Publish(Event{Stage: StageDone, Level: LevelInfo})

		ev, ok := nextWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageDone, ev.Stage)
		_, ok = nextWithin(t, sub, time.Second)
		assert.False(t, ok)
	})

	t.Run("SubscribeAfterCloseDrainsHistory", func(t *testing.T) {
		bus := NewBus(10)
		bus.Publish(Event{Stage: StageScanStart, Level: LevelInfo})
		bus.Publish(Event{Stage: StageDone, Level: LevelInfo})

		sub := bus.Subscribe()
		defer sub.Cancel()

		ev, ok := nextWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageScanStart, ev.Stage)
		ev, ok = nextWithin(t, sub, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageDone, ev.Stage)
		_, ok = nextWithin(t, sub, time.Second)
		assert.False(t, ok)
	})

	t.Run("PublishAfterCloseIgnored", func(t *testing.T) {
		bus := NewBus(10)
		bus.Publish(Event{Stage: StageDone, Level: LevelInfo})
		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo})
		assert.Len(t, bus.History(), 1)
	})

	t.Run("EvictionDropsOldestInfoOnly", func(t *testing.T) {
		bus := NewBus(3)
		bus.Publish(Event{Stage: StageFileError, Level: LevelError, Message: "e1"})
		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i1"})
		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i2"})
		// Full. Next publish must evict i1, never e1.
		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i3"})

		history := bus.History()
		require.Len(t, history, 3)
		assert.Equal(t, "e1", history[0].Message)
		assert.Equal(t, "i2", history[1].Message)
		assert.Equal(t, "i3", history[2].Message)
	})

	t.Run("HistoryHardBoundedWhenNothingDroppable", func(t *testing.T) {
		bus := NewBus(2)
		for i := 0; i < 5; i++ {
			bus.Publish(Event{Stage: StageFileError, Level: LevelError, Message: fmt.Sprintf("e%d", i)})
		}

		history := bus.History()
		require.Len(t, history, 2)
		assert.Equal(t, "e3", history[0].Message)
		assert.Equal(t, "e4", history[1].Message)
	})

	t.Run("PublishWaitsForSlowConsumer", func(t *testing.T) {
		bus := NewBus(2)
		sub := bus.Subscribe()
		defer sub.Cancel()

		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i1"})
		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i2"})

		// The queue is full; the consumer starts draining shortly after
		// the next publish begins waiting, so nothing is evicted.
		got := make(chan Event, 3)
		go func() {
			time.Sleep(5 * time.Millisecond)
			for i := 0; i < 3; i++ {
				ev, ok := sub.Next(context.Background())
				if !ok {
					return
				}
				got <- ev
			}
		}()

		bus.Publish(Event{Stage: StageFileSuccess, Level: LevelInfo, Message: "i3"})

		var msgs []string
		for i := 0; i < 3; i++ {
			select {
			case ev := <-got:
				msgs = append(msgs, ev.Message)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for events")
			}
		}
		assert.Equal(t, []string{"i1", "i2", "i3"}, msgs)
	})

	t.Run("TwoSubscribersBothReceive", func(t *testing.T) {
		bus := NewBus(10)
		a := bus.Subscribe()
		b := bus.Subscribe()
		defer a.Cancel()
		defer b.Cancel()

		bus.Publish(Event{Stage: StageScanStart, Level: LevelInfo})

		ev, ok := nextWithin(t, a, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageScanStart, ev.Stage)
		ev, ok = nextWithin(t, b, time.Second)
		require.True(t, ok)
		assert.Equal(t, StageScanStart, ev.Stage)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("CancelUnknownReturnsFalse", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		assert.False(t, reg.Cancel("nope"))
	})

	t.Run("CancelSetsStopFlag", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		s := reg.Start("/data", Params{Recursive: true})

		require.True(t, reg.Cancel(s.ID))
		assert.True(t, s.Stopped())
	})

	t.Run("CancelEndedSessionIsNoOp", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		s := reg.Start("/data", Params{})
		reg.End(s)

		assert.True(t, reg.Cancel(s.ID))
		assert.False(t, s.Stopped())
	})

	t.Run("CancelAll", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		a := reg.Start("/a", Params{})
		b := reg.Start("/b", Params{})

		ids := reg.CancelAll()
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
		assert.True(t, a.Stopped())
		assert.True(t, b.Stopped())
	})

	t.Run("ActiveExcludesEnded", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		a := reg.Start("/a", Params{})
		b := reg.Start("/b", Params{})
		reg.End(a)

		assert.Equal(t, []string{b.ID}, reg.Active())
	})

	t.Run("EndedSessionQueryableWithinGrace", func(t *testing.T) {
		reg := NewRegistry(10, time.Minute)
		s := reg.Start("/a", Params{})
		s.Bus().Publish(Event{Stage: StageDone, Level: LevelInfo, SessionID: s.ID})
		reg.End(s)

		snap, err := reg.GetSnapshot(s.ID)
		require.NoError(t, err)
		assert.True(t, snap.Done)
		require.Len(t, snap.History, 1)
		assert.Equal(t, StageDone, snap.History[0].Stage)
	})

	t.Run("EndedSessionDroppedAfterGrace", func(t *testing.T) {
		reg := NewRegistry(10, 10*time.Millisecond)
		s := reg.Start("/a", Params{})
		reg.End(s)

		assert.Eventually(t, func() bool {
			_, err := reg.Get(s.ID)
			return err != nil
		}, time.Second, 5*time.Millisecond)
	})
}
