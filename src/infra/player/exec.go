package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
)

// ExecPlayer drives an external player process, one per Play call. The
// default binary is ffplay; anything that accepts a file path argument and
// exits when playback ends works.
type ExecPlayer struct {
	binary string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewExecPlayer creates a player using the given binary.
func NewExecPlayer(binary string) *ExecPlayer {
	return &ExecPlayer{binary: binary}
}

// Play stops any running playback and starts the binary on path. It returns
// once the process has started; completion is signaled through Done.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	cmd := exec.CommandContext(ctx, p.binary, argsFor(p.binary, path)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player %s: %w", p.binary, err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done

	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("Player process exited", "binary", p.binary, "error", err)
		}
		close(done)
	}()

	slog.Debug("Playback started", "binary", p.binary, "path", path)
	return nil
}

// Pause suspends the player process.
func (p *ExecPlayer) Pause() error {
	return p.signal(syscall.SIGSTOP)
}

// Resume continues a paused player process.
func (p *ExecPlayer) Resume() error {
	return p.signal(syscall.SIGCONT)
}

// Stop kills the current playback, if any.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Playing reports whether a player process is currently running.
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current playback finishes. Before
// the first Play it returns an already-closed channel.
func (p *ExecPlayer) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}

func (p *ExecPlayer) signal(sig syscall.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("no playback in progress")
	}
	return p.cmd.Process.Signal(sig)
}

// stopLocked kills the running process and waits for its exit. Caller holds
// the mutex.
func (p *ExecPlayer) stopLocked() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	select {
	case <-p.done:
	default:
		_ = p.cmd.Process.Kill()
		<-p.done
	}
	p.cmd = nil
}

// argsFor returns playback arguments per binary. ffplay needs flags to run
// headless and exit at end of file.
func argsFor(binary string, path string) []string {
	switch binary {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	case "mpv":
		return []string{"--no-video", "--really-quiet", path}
	default:
		return []string{path}
	}
}
