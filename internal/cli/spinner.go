package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a status line on statusOut while a blocking call runs,
// with the elapsed seconds after the message. It is the non-interactive
// counterpart of the picker's bubbles spinner and shares its frames.
type Spinner struct {
	message string
	style   spinner.Spinner
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	once    sync.Once
	started time.Time
	width   int
	quit    chan struct{}
	exited  chan struct{}
}

func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	ctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		style:   spinner.MiniDot,
		ctx:     ctx,
		cancel:  cancel,
		quit:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// Start begins the animation. It is a no-op after Stop.
func (s *Spinner) Start() {
	s.mu.Lock()
	if !s.started.IsZero() {
		s.mu.Unlock()
		return
	}
	s.started = time.Now()
	s.mu.Unlock()

	go s.loop()
}

func (s *Spinner) loop() {
	defer close(s.exited)
	ticker := time.NewTicker(s.style.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.quit:
			return
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			s.draw(s.style.Frames[frame%len(s.style.Frames)])
		}
	}
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := fmt.Sprintf("%s %.0fs", s.message, time.Since(s.started).Seconds())
	s.width = max(s.width, len(text)+2)
	fmt.Fprintf(statusOut, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(text))
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(statusOut, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
}

// Stop ends the animation and clears the line. Later calls do nothing.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.quit)
		s.mu.Lock()
		running := !s.started.IsZero()
		s.mu.Unlock()
		if running {
			<-s.exited
		}
		s.cancel()
		s.clear()
	})
}

// Cancelled reports whether the parent context ended before Stop.
func (s *Spinner) Cancelled() bool {
	select {
	case <-s.quit:
		return false
	default:
		return s.ctx.Err() != nil
	}
}
