// Package session owns one child process attached to a pseudo-terminal and
// the byte plumbing between it and a screen. A dedicated reader goroutine
// decodes child output and applies it to the screen, so all grid mutation
// has a single owner; renderers read snapshots.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/gdamore/tcell/v2"

	"qterm/ansi"
	"qterm/grid"
	"qterm/input"
	"qterm/screen"
)

// State is the session lifecycle.
type State int

const (
	Idle State = iota
	Starting
	Running
	Exited
	Killed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Killed:
		return "killed"
	default:
		return "unknown"
	}
}

// Options configure a session at creation. The zero value gives an 80x24
// default-shell session with default scrollback.
type Options struct {
	Rows, Cols int

	Command string   // empty means the default shell
	Args    []string
	Dir     string   // working directory; empty inherits
	Env     []string // nil inherits the parent environment

	// Hidden sessions start without the host attaching a visible widget;
	// the session itself runs the same either way.
	Hidden bool

	Scrollback   int           // scrollback line capacity; 0 = default
	GraceTimeout time.Duration // graceful-kill escalation bound; 0 = 5s
}

const defaultGraceTimeout = 5 * time.Second

// DefaultShell resolves the shell used when no command is configured.
func DefaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

type Session struct {
	opts   Options
	scr    *screen.Screen
	parser *ansi.Parser

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	ptmx     *os.File
	exitCode int
	killReq  bool
	ioErr    error

	writes chan []byte
	quit   chan struct{} // closed by Close; stops the writer
	exited chan struct{} // closed once the child's exit is observed

	onOutput func()
	onState  func(old, new State)
}

func New(opts Options) *Session {
	if opts.Rows < 1 {
		opts.Rows = 24
	}
	if opts.Cols < 1 {
		opts.Cols = 80
	}
	if opts.Scrollback == 0 {
		opts.Scrollback = grid.DefaultScrollback
	}
	if opts.GraceTimeout <= 0 {
		opts.GraceTimeout = defaultGraceTimeout
	}
	return &Session{
		opts:   opts,
		scr:    screen.New(opts.Rows, opts.Cols, opts.Scrollback),
		parser: ansi.NewParser(),
		writes: make(chan []byte, 16),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Screen exposes the session's screen for snapshots and view scrolling.
func (s *Session) Screen() *screen.Screen { return s.scr }

// Options returns a copy of the creation options.
func (s *Session) Options() Options { return s.opts }

// OnOutput registers a callback invoked after each applied output chunk.
// It runs on the reader goroutine and must not block.
func (s *Session) OnOutput(fn func()) {
	s.mu.Lock()
	s.onOutput = fn
	s.mu.Unlock()
}

// OnState registers a state-change callback. It may run on any goroutine.
func (s *Session) OnState(fn func(old, new State)) {
	s.mu.Lock()
	s.onState = fn
	s.mu.Unlock()
}

// Start spawns the child on a fresh pty and begins the reader and writer
// loops. A pty or process failure is returned as a *SpawnError and leaves
// the session Idle.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return fmt.Errorf("session: start in state %s", s.state)
	}
	s.setStateLocked(Starting)
	command := s.opts.Command
	if command == "" {
		command = DefaultShell()
	}

	cmd := exec.Command(command, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	env := s.opts.Env
	if env == nil {
		env = os.Environ()
	}
	cmd.Env = append(append([]string{}, env...),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
	)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(s.opts.Rows),
		Cols: uint16(s.opts.Cols),
	})
	if err != nil {
		s.setStateLocked(Idle)
		s.mu.Unlock()
		return &SpawnError{Command: command, Err: err}
	}

	s.cmd = cmd
	s.ptmx = ptmx
	s.setStateLocked(Running)
	s.mu.Unlock()

	// Cursor-position reports go back through the child's input channel.
	// Dropping one under full backpressure beats deadlocking the reader.
	s.scr.SetResponder(func(b []byte) {
		select {
		case s.writes <- append([]byte{}, b...):
		default:
		}
	})

	go s.writeLoop(ptmx)
	go s.readLoop(ptmx)
	go s.waitChild(cmd)
	return nil
}

func (s *Session) writeLoop(ptmx *os.File) {
	for {
		select {
		case p := <-s.writes:
			if _, err := ptmx.Write(p); err != nil {
				s.recordIOErr("write", err)
				return
			}
		case <-s.quit:
			return
		}
	}
}

func (s *Session) readLoop(ptmx *os.File) {
	buf := make([]byte, 4096)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			s.scr.Apply(s.parser.Feed(buf[:n]))
			s.mu.Lock()
			notify := s.onOutput
			s.mu.Unlock()
			if notify != nil {
				notify()
			}
		}
		if err != nil {
			// A read error after the child exits is the normal teardown
			// signal; only a failure during Running is recorded.
			s.recordIOErr("read", err)
			return
		}
	}
}

func (s *Session) recordIOErr(op string, err error) {
	select {
	case <-s.exited:
		return
	default:
	}
	s.mu.Lock()
	if s.state == Running && s.ioErr == nil && !s.killReq {
		s.ioErr = &IOError{Op: op, Err: err}
	}
	s.mu.Unlock()
}

func (s *Session) waitChild(cmd *exec.Cmd) {
	err := cmd.Wait()
	s.mu.Lock()
	s.exitCode = 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			s.exitCode = ee.ExitCode()
		}
	} else {
		s.exitCode = cmd.ProcessState.ExitCode()
	}
	if s.state == Running {
		s.setStateLocked(Exited)
	}
	close(s.exited)
	s.mu.Unlock()
}

// setStateLocked updates the state and fires the callback without the lock.
func (s *Session) setStateLocked(next State) {
	old := s.state
	if old == next {
		return
	}
	s.state = next
	if fn := s.onState; fn != nil {
		s.mu.Unlock()
		fn(old, next)
		s.mu.Lock()
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Running() bool { return s.State() == Running }

// ExitCode returns the child's exit code once its exit has been observed.
func (s *Session) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.exited:
		return s.exitCode, true
	default:
		return 0, false
	}
}

// Err returns the I/O error recorded while Running, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ioErr
}

// Write enqueues bytes for the child's input. It blocks only for the
// channel handoff; the writer goroutine absorbs the child's backpressure.
func (s *Session) Write(p []byte) error {
	s.mu.Lock()
	running := s.state == Running
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}
	buf := append([]byte{}, p...)
	select {
	case s.writes <- buf:
		return nil
	case <-s.exited:
		return ErrNotRunning
	}
}

// SendKey encodes a key event and forwards it to the child. Keys with no
// terminal encoding are silently ignored.
func (s *Session) SendKey(ev *tcell.EventKey) error {
	data := input.EncodeKey(ev, s.scr.AppCursorKeys())
	if data == nil {
		return nil
	}
	return s.Write(data)
}

// Paste forwards text, bracketed when the child has requested it.
func (s *Session) Paste(text string) error {
	return s.Write(input.EncodePaste(text, s.scr.BracketedPaste()))
}

// Resize propagates a new size to both the screen and the pty, keeping the
// child's notion of its window consistent with the grid.
func (s *Session) Resize(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return fmt.Errorf("session: invalid size %dx%d", cols, rows)
	}
	s.scr.Resize(rows, cols)
	s.mu.Lock()
	s.opts.Rows, s.opts.Cols = rows, cols
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	return pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Wait blocks until the child exits or the timeout elapses. A negative
// timeout waits indefinitely. Timeout is reported as ErrWaitTimeout,
// distinct from any exit outcome.
func (s *Session) Wait(timeout time.Duration) (int, error) {
	s.mu.Lock()
	if s.state == Idle || s.state == Starting {
		s.mu.Unlock()
		return 0, ErrNotRunning
	}
	s.mu.Unlock()

	if timeout < 0 {
		<-s.exited
	} else {
		select {
		case <-s.exited:
		case <-time.After(timeout):
			return 0, ErrWaitTimeout
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, nil
}

// Kill requests termination. force kills outright; otherwise the child
// gets an interrupt and is killed anyway once the grace timeout passes.
func (s *Session) Kill(force bool) error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.killReq = true
	cmd := s.cmd
	s.setStateLocked(Killed)
	s.mu.Unlock()

	if force {
		return cmd.Process.Kill()
	}
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		return cmd.Process.Kill()
	}
	go func() {
		select {
		case <-s.exited:
		case <-time.After(s.opts.GraceTimeout):
			cmd.Process.Kill()
		}
	}()
	return nil
}

// Close tears the session down: an implicit forced kill if still running,
// then release of the pty so the reader observes closure and exits.
func (s *Session) Close() error {
	s.mu.Lock()
	running := s.state == Running
	ptmx := s.ptmx
	started := s.cmd != nil
	s.mu.Unlock()

	if running {
		s.Kill(true)
	}
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	if ptmx != nil {
		ptmx.Close()
	}
	if started {
		<-s.exited
	}
	return nil
}
