// Package trim maps the geometry of a video trim control to playback time.
//
// The control is a horizontally scrolling filmstrip of width contentWidth
// shown through a view of width viewWidth. Two handles of width controlWidth
// bound the valid rect, the selected window. Scrolling the filmstrip and
// dragging either handle both move the selected time range; the mapper turns
// those gestures into start and end times and back, and persists the layout
// as ratios that survive a change of view width.
package trim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultControlWidth is the width of one trim handle in points.
const DefaultControlWidth = 18

// defaultItemWidth is the width of one filmstrip thumbnail.
const defaultItemWidth = 24

// ratioTolerance absorbs rounding in persisted ratios.
const ratioTolerance = 1e-9

// ErrInvalidInfo is returned when persisted ratios are out of range.
var ErrInvalidInfo = errors.New("invalid trim info")

// Config holds the limits of a trim control.
type Config struct {
	// ControlWidth is the width of each handle. Zero uses DefaultControlWidth.
	ControlWidth float64
	// MinimumDuration is the shortest selectable range. Values under one
	// second are raised to one second.
	MinimumDuration time.Duration
	// MaximumDuration is the longest selectable range; zero means no limit.
	MaximumDuration time.Duration
	// ItemWidth is the width of one filmstrip thumbnail.
	ItemWidth float64
}

// Info is the persisted, view size independent layout of a trim control.
type Info struct {
	// OffsetRatio is the scroll offset relative to the content width.
	OffsetRatio float64 `json:"offset_ratio"`
	// TrimStartRatio is the left edge of the valid rect relative to the
	// valid area width.
	TrimStartRatio float64 `json:"trim_start_ratio"`
	// TrimWidthRatio is the width of the valid rect relative to the valid
	// area width.
	TrimWidthRatio float64 `json:"trim_width_ratio"`
}

// Validate checks that the ratios describe a rect inside the valid area.
func (i Info) Validate() error {
	for _, r := range []float64{i.OffsetRatio, i.TrimStartRatio, i.TrimWidthRatio} {
		if math.IsNaN(r) || r < 0 || r > 1+ratioTolerance {
			return fmt.Errorf("%w: ratio %v outside [0, 1]", ErrInvalidInfo, r)
		}
	}
	if i.TrimStartRatio+i.TrimWidthRatio > 1+ratioTolerance {
		return fmt.Errorf("%w: trim start %v plus width %v exceeds 1", ErrInvalidInfo, i.TrimStartRatio, i.TrimWidthRatio)
	}
	return nil
}

// Target is the element a drag gesture moves.
type Target int

// Drag targets.
const (
	TargetLeft Target = iota
	TargetRight
	TargetPlayhead
)

// State is the gesture state of the control.
type State int

// Gesture states.
const (
	StateIdle State = iota
	StateDraggingLeft
	StateDraggingRight
	StateScrolling
	StateDraggingPlayhead
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraggingLeft:
		return "dragging_left"
	case StateDraggingRight:
		return "dragging_right"
	case StateScrolling:
		return "scrolling"
	case StateDraggingPlayhead:
		return "dragging_playhead"
	default:
		return "unknown"
	}
}

// Event is a change reported to a Listener.
type Event int

// Events.
const (
	LeftChanged Event = iota
	LeftEnded
	RightChanged
	RightEnded
	Scrolled
	ScrollEnded
	PlayheadChanged
)

func (e Event) String() string {
	switch e {
	case LeftChanged:
		return "left_changed"
	case LeftEnded:
		return "left_ended"
	case RightChanged:
		return "right_changed"
	case RightEnded:
		return "right_ended"
	case Scrolled:
		return "scrolled"
	case ScrollEnded:
		return "scroll_ended"
	case PlayheadChanged:
		return "playhead_changed"
	default:
		return "unknown"
	}
}

// Listener receives events with the time they refer to: the start time for
// left handle and scroll events, the end time for right handle events and
// the playhead time for playhead events.
type Listener func(Event, time.Duration)

// Option configures a Mapper.
type Option func(*Mapper)

// WithListener sets the event listener.
func WithListener(l Listener) Option {
	return func(m *Mapper) {
		m.listener = l
	}
}

// Mapper converts trim control gestures to playback times. Listener calls
// happen synchronously, outside the mapper lock.
type Mapper struct {
	mu sync.Mutex

	asset    time.Duration
	cfg      Config
	listener Listener

	viewWidth    float64
	contentWidth float64
	minWidth     float64

	// offset is the scroll position of the content at the left edge of the
	// valid area.
	offset float64
	minX   float64
	maxX   float64

	state     State
	beginMinX float64
	beginMaxX float64
	beginHead float64
	playhead  float64
}

// New lays out a trim control of viewWidth for an asset of the given
// duration with the full valid area selected.
func New(asset time.Duration, viewWidth float64, cfg Config, opts ...Option) *Mapper {
	if cfg.ControlWidth <= 0 {
		cfg.ControlWidth = DefaultControlWidth
	}
	if cfg.ItemWidth <= 0 {
		cfg.ItemWidth = defaultItemWidth
	}
	m := &Mapper{asset: max(asset, 0), cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	m.layout(viewWidth)
	m.minX = m.cfg.ControlWidth
	m.maxX = m.minX + m.validAreaWidth()
	m.playhead = m.minX
	return m
}

func (m *Mapper) layout(viewWidth float64) {
	m.viewWidth = viewWidth
	valid := m.validAreaWidth()

	seconds := m.asset.Seconds()
	if seconds <= 0 {
		seconds = 1
	}
	maxSeconds := m.cfg.MaximumDuration.Seconds()
	if maxSeconds > 0 && seconds > maxSeconds {
		m.contentWidth = valid / maxSeconds * seconds
	} else {
		m.contentWidth = valid
	}

	if math.Round(m.asset.Seconds()) <= 0 {
		m.minWidth = m.contentWidth
	} else {
		minSeconds := max(m.cfg.MinimumDuration.Seconds(), 1)
		m.minWidth = m.contentWidth * minSeconds / m.asset.Seconds()
	}
}

func (m *Mapper) validAreaWidth() float64 {
	return max(m.viewWidth-2*m.cfg.ControlWidth, 0)
}

func (m *Mapper) maxOffset() float64 {
	return max(m.contentWidth-m.validAreaWidth(), 0)
}

// ContentWidth returns the full filmstrip width.
func (m *Mapper) ContentWidth() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentWidth
}

// MinWidth returns the narrowest valid rect allowed.
func (m *Mapper) MinWidth() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minWidth
}

// ValidRect returns the left and right edges of the valid rect in view
// coordinates.
func (m *Mapper) ValidRect() (minX, maxX float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minX, m.maxX
}

// Offset returns the scroll offset.
func (m *Mapper) Offset() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset
}

// State returns the gesture state.
func (m *Mapper) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// FollowsPlayhead reports whether playback may move the playhead, which is
// only the case while no gesture is active.
func (m *Mapper) FollowsPlayhead() bool {
	return m.State() == StateIdle
}

// StartTime returns the time at the left edge of the valid rect.
func (m *Mapper) StartTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return toDuration(m.startSeconds())
}

// EndTime returns the time at the right edge of the valid rect.
func (m *Mapper) EndTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return toDuration(m.endSeconds())
}

// Duration returns the selected duration, never above the maximum.
func (m *Mapper) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration()
}

func (m *Mapper) duration() time.Duration {
	d := toDuration(m.endSeconds()) - toDuration(m.startSeconds())
	if m.cfg.MaximumDuration > 0 && d > m.cfg.MaximumDuration {
		d = m.cfg.MaximumDuration
	}
	return d
}

// timeFromOffset converts a scroll offset to seconds, using the current
// left edge of the valid rect.
func (m *Mapper) timeFromOffset(offset float64) float64 {
	if m.contentWidth <= 0 {
		return 0
	}
	offset = min(offset, m.maxOffset())
	ratio := (offset + m.minX - m.cfg.ControlWidth) / m.contentWidth
	return clamp(ratio, 0, 1) * m.asset.Seconds()
}

func (m *Mapper) startSeconds() float64 {
	return m.timeFromOffset(m.offset)
}

func (m *Mapper) endSeconds() float64 {
	if m.contentWidth <= 0 {
		return 0
	}
	asset := m.asset.Seconds()
	end := m.startSeconds() + (m.maxX-m.minX)/m.contentWidth*asset
	return min(end, asset)
}

// BeginDrag starts a drag of target. It returns false when another gesture
// is active.
func (m *Mapper) BeginDrag(target Target) bool {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return false
	}
	m.beginMinX, m.beginMaxX, m.beginHead = m.minX, m.maxX, m.playhead

	var ev Event
	var at time.Duration
	switch target {
	case TargetLeft:
		m.state = StateDraggingLeft
		ev, at = LeftChanged, toDuration(m.startSeconds())
	case TargetRight:
		m.state = StateDraggingRight
		ev, at = RightChanged, toDuration(m.endSeconds())
	case TargetPlayhead:
		m.state = StateDraggingPlayhead
		ev, at = PlayheadChanged, m.timeAt(m.playhead)
	default:
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	m.emit(ev, at)
	return true
}

// Drag moves the dragged element by dx, the total translation since
// BeginDrag.
func (m *Mapper) Drag(dx float64) {
	m.mu.Lock()
	var ev Event
	var at time.Duration
	switch m.state {
	case StateDraggingLeft:
		m.minX = m.leftFor(m.beginMinX + dx)
		ev, at = LeftChanged, toDuration(m.startSeconds())
	case StateDraggingRight:
		m.maxX = m.rightFor(m.beginMaxX + dx)
		ev, at = RightChanged, toDuration(m.endSeconds())
	case StateDraggingPlayhead:
		m.playhead = clamp(m.beginHead+dx, m.minX, m.maxX)
		ev, at = PlayheadChanged, m.timeAt(m.playhead)
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.emit(ev, at)
}

// leftFor returns the left edge for a requested position, keeping at least
// minWidth to the right edge and staying inside the view.
func (m *Mapper) leftFor(x float64) float64 {
	lo := m.cfg.ControlWidth
	x = max(x, lo)
	if m.maxX-x <= m.minWidth {
		x = m.maxX - m.minWidth
	}
	return max(x, lo)
}

// rightFor returns the right edge for a requested position, keeping at
// least minWidth to the left edge and staying inside the view.
func (m *Mapper) rightFor(x float64) float64 {
	hi := m.viewWidth - m.cfg.ControlWidth
	x = min(x, hi)
	if x-m.minX <= m.minWidth {
		x = m.minX + m.minWidth
	}
	return min(x, hi)
}

// EndDrag finishes the active drag and returns to idle. The playhead is
// moved back inside the valid rect when a handle passed over it.
func (m *Mapper) EndDrag() {
	m.mu.Lock()
	var ev Event
	var at time.Duration
	switch m.state {
	case StateDraggingLeft:
		m.playhead = m.minX
		ev, at = LeftEnded, toDuration(m.startSeconds())
	case StateDraggingRight:
		m.playhead = clamp(m.playhead, m.minX, m.maxX)
		ev, at = RightEnded, toDuration(m.endSeconds())
	case StateDraggingPlayhead:
		ev, at = PlayheadChanged, m.timeAt(m.playhead)
	default:
		m.mu.Unlock()
		return
	}
	m.state = StateIdle
	m.mu.Unlock()

	m.emit(ev, at)
}

// Scroll sets the scroll offset. Positions past either end are accepted
// while scrolling and resolved by EndScroll.
func (m *Mapper) Scroll(offset float64) {
	m.mu.Lock()
	if m.state != StateIdle && m.state != StateScrolling {
		m.mu.Unlock()
		return
	}
	m.state = StateScrolling
	m.offset = offset
	at := toDuration(m.startSeconds())
	m.mu.Unlock()

	m.emit(Scrolled, at)
}

// EndScroll clamps the offset to the content and returns to idle. The
// playhead moves to the start of the valid rect.
func (m *Mapper) EndScroll() {
	m.mu.Lock()
	if m.state != StateScrolling {
		m.mu.Unlock()
		return
	}
	m.offset = clamp(m.offset, 0, m.maxOffset())
	m.playhead = m.minX
	m.state = StateIdle
	at := toDuration(m.startSeconds())
	m.mu.Unlock()

	m.emit(ScrollEnded, at)
}

// Playhead returns the time under the playhead.
func (m *Mapper) Playhead() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeAt(m.playhead)
}

// SetPlayhead moves the playhead to t during playback. It does nothing and
// returns false while a gesture is active.
func (m *Mapper) SetPlayhead(t time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return false
	}
	m.playhead = m.xAt(t)
	return true
}

// TimeAtPlayhead returns the time for a playhead at view position x. x is
// clamped to the valid rect.
func (m *Mapper) TimeAtPlayhead(x float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeAt(x)
}

// PlayheadX returns the view position of a playhead at time t. t is clamped
// to the selected range.
func (m *Mapper) PlayheadX(t time.Duration) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.xAt(t)
}

func (m *Mapper) timeAt(x float64) time.Duration {
	width := m.maxX - m.minX
	if width <= 0 {
		return toDuration(m.startSeconds())
	}
	ratio := (clamp(x, m.minX, m.maxX) - m.minX) / width
	start := m.startSeconds()
	return toDuration(start + (m.endSeconds()-start)*ratio)
}

func (m *Mapper) xAt(t time.Duration) float64 {
	start, end := m.startSeconds(), m.endSeconds()
	if end <= start {
		return m.minX
	}
	ratio := (clamp(t.Seconds(), start, end) - start) / (end - start)
	return m.minX + (m.maxX-m.minX)*ratio
}

// Info returns the persisted layout.
func (m *Mapper) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info()
}

func (m *Mapper) info() Info {
	var info Info
	if m.contentWidth > 0 {
		info.OffsetRatio = clamp(m.offset, 0, m.maxOffset()) / m.contentWidth
	}
	if valid := m.validAreaWidth(); valid > 0 {
		info.TrimStartRatio = (m.minX - m.cfg.ControlWidth) / valid
		info.TrimWidthRatio = (m.maxX - m.minX) / valid
	}
	return info
}

// Restore applies a persisted layout at the current view width and returns
// to idle.
func (m *Mapper) Restore(info Info) error {
	if err := info.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restore(info)
	return nil
}

func (m *Mapper) restore(info Info) {
	valid := m.validAreaWidth()
	m.offset = clamp(m.contentWidth*info.OffsetRatio, 0, m.maxOffset())
	lo, hi := m.cfg.ControlWidth, m.cfg.ControlWidth+valid
	m.minX = clamp(lo+valid*info.TrimStartRatio, lo, hi)
	m.maxX = clamp(m.minX+valid*info.TrimWidthRatio, m.minX, hi)
	// Stored layouts narrower than the minimum grow right, then left at the
	// view edge.
	if m.maxX-m.minX < m.minWidth {
		m.maxX = min(m.minX+m.minWidth, hi)
		m.minX = max(m.maxX-m.minWidth, lo)
	}
	m.playhead = m.minX
	m.state = StateIdle
}

// Resize lays the control out for a new view width, keeping the selected
// time range. An active gesture is abandoned.
func (m *Mapper) Resize(viewWidth float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := m.info()
	m.layout(viewWidth)
	m.restore(info)
}

// FrameCount returns the number of filmstrip thumbnails.
func (m *Mapper) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contentWidth <= 0 {
		return 0
	}
	return int(math.Ceil(m.contentWidth / m.cfg.ItemWidth))
}

// FrameTime returns the asset time sampled for thumbnail i. The first and
// last thumbnails are pulled inside the asset so they never hit a black
// boundary frame.
func (m *Mapper) FrameTime(i int) time.Duration {
	count := m.FrameCount()
	m.mu.Lock()
	defer m.mu.Unlock()

	asset := m.asset.Seconds()
	var second float64
	switch {
	case i <= 0:
		second = 0.1
	case i >= count-1:
		if asset < 1 {
			second = asset - 0.1
		} else {
			second = asset - 0.5
		}
	case asset < 1:
		second = 0
	default:
		interval := m.cfg.ItemWidth / m.contentWidth * asset
		second = float64(i)*interval + interval/2
	}
	return toDuration(clamp(second, 0, asset))
}

func (m *Mapper) emit(ev Event, at time.Duration) {
	if m.listener != nil {
		m.listener(ev, at)
	}
}

// toDuration converts seconds to a duration at millisecond precision.
func toDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
