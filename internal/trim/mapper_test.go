package trim

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 336 point view leaves a 300 point valid area between the handles.
const testViewWidth = 336

func within(t *testing.T, want, got time.Duration) {
	t.Helper()
	assert.InDelta(t, float64(want), float64(got), float64(time.Millisecond), "want %v, got %v", want, got)
}

func TestNew_Layout(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{})

	assert.Equal(t, 300.0, m.ContentWidth())
	assert.InDelta(t, 15.0, m.MinWidth(), 1e-9, "minimum raised to one second")
	minX, maxX := m.ValidRect()
	assert.Equal(t, 18.0, minX)
	assert.Equal(t, 318.0, maxX)
	assert.Equal(t, time.Duration(0), m.StartTime())
	assert.Equal(t, 20*time.Second, m.EndTime())
	assert.Equal(t, StateIdle, m.State())
}

func TestNew_MaximumDuration(t *testing.T) {
	m := New(30*time.Second, testViewWidth, Config{MaximumDuration: 10 * time.Second})

	assert.InDelta(t, 900.0, m.ContentWidth(), 1e-9)
	assert.Equal(t, time.Duration(0), m.StartTime())
	within(t, 10*time.Second, m.EndTime())
	within(t, 10*time.Second, m.Duration())

	m.Scroll(600)
	within(t, 20*time.Second, m.StartTime())
	within(t, 30*time.Second, m.EndTime())
	m.EndScroll()
	assert.InDelta(t, 600.0, m.Offset(), 1e-9)
}

func TestNew_ShortAssetUsesWholeWidth(t *testing.T) {
	m := New(300*time.Millisecond, testViewWidth, Config{MinimumDuration: 3 * time.Second})
	assert.Equal(t, m.ContentWidth(), m.MinWidth())
}

func TestMapper_MinimumDuration(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{MinimumDuration: 4 * time.Second})
	assert.InDelta(t, 60.0, m.MinWidth(), 1e-9)
}

func TestMapper_DragLeft(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{})
	_, maxBefore := m.ValidRect()

	require.True(t, m.BeginDrag(TargetLeft))
	assert.Equal(t, StateDraggingLeft, m.State())
	assert.False(t, m.FollowsPlayhead())

	m.Drag(150)
	within(t, 10*time.Second, m.StartTime())
	within(t, 20*time.Second, m.EndTime())

	m.Drag(1000)
	minX, maxX := m.ValidRect()
	assert.InDelta(t, maxX-m.MinWidth(), minX, 1e-9)
	within(t, 19*time.Second, m.StartTime())

	m.Drag(-1000)
	minX, maxX = m.ValidRect()
	assert.Equal(t, 18.0, minX)
	assert.Equal(t, maxBefore, maxX, "left drags never move the right edge")

	m.EndDrag()
	assert.Equal(t, StateIdle, m.State())
	assert.True(t, m.FollowsPlayhead())
}

func TestMapper_DragRight(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{})
	minBefore, _ := m.ValidRect()

	require.True(t, m.BeginDrag(TargetRight))
	m.Drag(-150)
	assert.Equal(t, time.Duration(0), m.StartTime())
	within(t, 10*time.Second, m.EndTime())

	m.Drag(-1000)
	within(t, time.Second, m.EndTime())

	m.Drag(1000)
	minX, maxX := m.ValidRect()
	assert.Equal(t, 318.0, maxX)
	assert.Equal(t, minBefore, minX, "right drags never move the left edge")
	m.EndDrag()
}

func TestMapper_GestureExclusion(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{})

	m.Scroll(0)
	assert.Equal(t, StateScrolling, m.State())
	assert.False(t, m.BeginDrag(TargetLeft))
	m.EndScroll()

	require.True(t, m.BeginDrag(TargetRight))
	m.Scroll(100)
	assert.Equal(t, StateDraggingRight, m.State())
	assert.Zero(t, m.Offset())
	assert.False(t, m.SetPlayhead(time.Second))
	m.EndDrag()

	assert.True(t, m.SetPlayhead(5*time.Second))
}

func TestMapper_Events(t *testing.T) {
	type rec struct {
		ev Event
		at time.Duration
	}
	var got []rec
	m := New(20*time.Second, testViewWidth, Config{}, WithListener(func(ev Event, at time.Duration) {
		got = append(got, rec{ev, at})
	}))

	m.BeginDrag(TargetLeft)
	m.Drag(150)
	m.EndDrag()
	m.BeginDrag(TargetRight)
	m.EndDrag()

	require.Len(t, got, 5)
	assert.Equal(t, rec{LeftChanged, 0}, got[0])
	assert.Equal(t, LeftChanged, got[1].ev)
	within(t, 10*time.Second, got[1].at)
	assert.Equal(t, LeftEnded, got[2].ev)
	assert.Equal(t, RightChanged, got[3].ev)
	assert.Equal(t, RightEnded, got[4].ev)
	within(t, 20*time.Second, got[4].at)
}

func TestMapper_ScrollEvents(t *testing.T) {
	var events []Event
	m := New(30*time.Second, testViewWidth, Config{MaximumDuration: 10 * time.Second},
		WithListener(func(ev Event, _ time.Duration) { events = append(events, ev) }))

	m.Scroll(-50)
	assert.Equal(t, time.Duration(0), m.StartTime())
	m.Scroll(2000)
	within(t, 20*time.Second, m.StartTime())
	m.EndScroll()

	assert.Equal(t, []Event{Scrolled, Scrolled, ScrollEnded}, events)
}

func TestMapper_Playhead(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{})

	within(t, 10*time.Second, m.TimeAtPlayhead(168))
	assert.Equal(t, time.Duration(0), m.TimeAtPlayhead(-5))
	assert.Equal(t, 20*time.Second, m.TimeAtPlayhead(1000))
	assert.InDelta(t, 93.0, m.PlayheadX(5*time.Second), 1e-9)

	require.True(t, m.BeginDrag(TargetPlayhead))
	assert.Equal(t, StateDraggingPlayhead, m.State())
	m.Drag(75)
	within(t, 5*time.Second, m.Playhead())
	m.Drag(10_000)
	within(t, 20*time.Second, m.Playhead())
	m.EndDrag()
}

func TestMapper_RestoreAtDifferentWidth(t *testing.T) {
	cfg := Config{MaximumDuration: 10 * time.Second}
	m := New(30*time.Second, testViewWidth, cfg)

	m.Scroll(300)
	m.EndScroll()
	m.BeginDrag(TargetLeft)
	m.Drag(30)
	m.EndDrag()
	m.BeginDrag(TargetRight)
	m.Drag(-60)
	m.EndDrag()

	within(t, 11*time.Second, m.StartTime())
	within(t, 18*time.Second, m.EndTime())

	info := m.Info()
	assert.InDelta(t, 1.0/3, info.OffsetRatio, 1e-9)
	assert.InDelta(t, 0.1, info.TrimStartRatio, 1e-9)
	assert.InDelta(t, 0.7, info.TrimWidthRatio, 1e-9)

	for _, width := range []float64{200, 500, 1024} {
		restored := New(30*time.Second, width, cfg)
		require.NoError(t, restored.Restore(info))
		within(t, m.StartTime(), restored.StartTime())
		within(t, m.EndTime(), restored.EndTime())
	}

	m.Resize(640)
	within(t, 11*time.Second, m.StartTime())
	within(t, 18*time.Second, m.EndTime())
}

func TestMapper_RestoreEnforcesMinimum(t *testing.T) {
	cfg := Config{MinimumDuration: 5 * time.Second}

	m := New(30*time.Second, testViewWidth, cfg)
	require.NoError(t, m.Restore(Info{TrimStartRatio: 0.5, TrimWidthRatio: 0}))
	within(t, 15*time.Second, m.StartTime())
	within(t, 20*time.Second, m.EndTime())
	within(t, 5*time.Second, m.Duration())

	m = New(30*time.Second, testViewWidth, cfg)
	require.NoError(t, m.Restore(Info{TrimStartRatio: 1, TrimWidthRatio: 0}))
	minX, maxX := m.ValidRect()
	assert.Equal(t, 318.0, maxX)
	assert.InDelta(t, 268.0, minX, 1e-9)
	within(t, 25*time.Second, m.StartTime())
	within(t, 30*time.Second, m.EndTime())
}

func TestInfo_JSON(t *testing.T) {
	data, err := json.Marshal(Info{OffsetRatio: 0.25, TrimStartRatio: 0.1, TrimWidthRatio: 0.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"offset_ratio":0.25,"trim_start_ratio":0.1,"trim_width_ratio":0.5}`, string(data))
}

func TestInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    Info
		wantErr bool
	}{
		{name: "full", info: Info{TrimWidthRatio: 1}},
		{name: "negative", info: Info{OffsetRatio: -0.1, TrimWidthRatio: 1}, wantErr: true},
		{name: "overflow", info: Info{TrimStartRatio: 0.5, TrimWidthRatio: 0.6}, wantErr: true},
		{name: "above one", info: Info{TrimWidthRatio: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInfo))
				return
			}
			assert.NoError(t, err)
		})
	}

	m := New(10*time.Second, testViewWidth, Config{})
	assert.Error(t, m.Restore(Info{TrimStartRatio: 0.9, TrimWidthRatio: 0.9}))
}

func TestMapper_Filmstrip(t *testing.T) {
	m := New(20*time.Second, testViewWidth, Config{ItemWidth: 30})

	require.Equal(t, 10, m.FrameCount())
	assert.Equal(t, 100*time.Millisecond, m.FrameTime(0))
	assert.Equal(t, 7*time.Second, m.FrameTime(3))
	assert.Equal(t, 19500*time.Millisecond, m.FrameTime(9))
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00.00"},
		{9500 * time.Millisecond, "00:09.50"},
		{75250 * time.Millisecond, "01:15.25"},
		{59999 * time.Millisecond, "01:00.00"},
		{3661500 * time.Millisecond, "01:01:01.50"},
		{-time.Second, "00:00.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.in))
		})
	}
}
