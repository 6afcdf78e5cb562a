// Package audio acquires the microphone through an external capture command.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Permission is the microphone access state.
type Permission int

const (
	PermissionPrompt Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionPrompt:
		return "prompt"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "unknown"
}

// ErrUnavailable is returned by Open when the capture device cannot be used.
var ErrUnavailable = errors.New("microphone unavailable")

// Capture is a live recording. Stop returns the encoded audio and releases
// the device. It is safe to call more than once; later calls return the
// same result.
type Capture interface {
	Stop() ([]byte, error)
}

// Microphone hands out captures.
type Microphone interface {
	Permission() Permission
	RequestPermission(ctx context.Context) Permission
	Open(ctx context.Context) (Capture, error)
}

const (
	defaultProbe = 750 * time.Millisecond
	defaultGrace = 2 * time.Second
)

// CommandMicrophone records by running a command that writes encoded audio
// to stdout, e.g. ffmpeg reading from ALSA or avfoundation.
type CommandMicrophone struct {
	command []string
	probe   time.Duration
	grace   time.Duration
	log     *zap.Logger

	mu   sync.Mutex
	perm Permission
}

// NewCommandMicrophone returns a microphone backed by command.
func NewCommandMicrophone(command []string, log *zap.Logger) *CommandMicrophone {
	return &CommandMicrophone{
		command: command,
		probe:   defaultProbe,
		grace:   defaultGrace,
		log:     log,
	}
}

// Permission reports the last known access state. A capture binary that is
// not installed counts as denied.
func (m *CommandMicrophone) Permission() Permission {
	if !m.installed() {
		return PermissionDenied
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perm
}

// RequestPermission runs the capture command briefly. A command that is
// still running when the probe window closes has opened the device.
func (m *CommandMicrophone) RequestPermission(ctx context.Context) Permission {
	perm := m.runProbe(ctx)
	m.mu.Lock()
	m.perm = perm
	m.mu.Unlock()
	return perm
}

func (m *CommandMicrophone) runProbe(ctx context.Context) Permission {
	if !m.installed() {
		return PermissionDenied
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probe)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(probeCtx, m.command[0], m.command[1:]...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = m.grace
	err := cmd.Run()

	if probeCtx.Err() != nil && ctx.Err() == nil {
		return PermissionGranted
	}
	if err != nil {
		m.log.Warn("microphone probe failed",
			zap.Error(err),
			zap.String("stderr", lastLine(stderr.String())))
		return PermissionDenied
	}
	return PermissionGranted
}

// Open starts the capture command. The capture stops on its own when ctx
// ends.
func (m *CommandMicrophone) Open(ctx context.Context) (Capture, error) {
	if !m.installed() {
		return nil, fmt.Errorf("%s not found: %w", m.command[0], ErrUnavailable)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, m.command[0], m.command[1:]...)
	cmd.Cancel = func() error {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = m.grace

	c := &commandCapture{cmd: cmd, cancel: cancel, log: m.log}
	cmd.Stdout = &c.out
	cmd.Stderr = &c.errOut

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	m.log.Debug("capture started", zap.Int("pid", cmd.Process.Pid))

	// Stop the recorder if the caller's context ends first.
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-runCtx.Done():
		}
	}()
	return c, nil
}

func (m *CommandMicrophone) installed() bool {
	if len(m.command) == 0 {
		return false
	}
	_, err := exec.LookPath(m.command[0])
	return err == nil
}

type commandCapture struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	log    *zap.Logger

	out    bytes.Buffer
	errOut bytes.Buffer

	once sync.Once
	data []byte
	err  error
}

func (c *commandCapture) Stop() ([]byte, error) {
	c.once.Do(func() {
		c.cancel()
		waitErr := c.cmd.Wait()
		c.data = c.out.Bytes()

		// Interrupted recorders usually exit non-zero; only an empty
		// recording is a failure.
		if len(c.data) == 0 {
			if waitErr == nil {
				waitErr = errors.New("no audio captured")
			}
			c.err = fmt.Errorf("capture: %w (%s)", waitErr, lastLine(c.errOut.String()))
		}
		c.log.Debug("capture stopped", zap.Int("bytes", len(c.data)), zap.NamedError("exit", waitErr))
	})
	return c.data, c.err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
