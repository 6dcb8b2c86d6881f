package terminal

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"edmoserver/internal/backend"
	"edmoserver/internal/config"
	"edmoserver/internal/eventbus"
)

// discardConn is a minimal net.Conn that swallows writes, used so command
// handlers can write their response without a reader on the other end.
type discardConn struct{}

func (discardConn) Read([]byte) (int, error)        { return 0, errors.New("not implemented") }
func (discardConn) Write(p []byte) (int, error)     { return len(p), nil }
func (discardConn) Close() error                    { return nil }
func (discardConn) LocalAddr() net.Addr              { return nil }
func (discardConn) RemoteAddr() net.Addr             { return nil }
func (discardConn) SetDeadline(time.Time) error      { return nil }
func (discardConn) SetReadDeadline(time.Time) error  { return nil }
func (discardConn) SetWriteDeadline(time.Time) error { return nil }

func newTestContext(t *testing.T) (*CommandContext, context.CancelFunc) {
	t.Helper()
	cfg := config.Load()
	cfg.UDPPort = 0
	cfg.SessionLogDir = t.TempDir()

	b, err := backend.New(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, cancel := context.WithCancel(context.Background())
	return &CommandContext{
		Conn:       discardConn{},
		Backend:    b,
		EventBus:   eventbus.New(),
		Cancel:     cancel,
		Subscriber: eventbus.NewSubscriber(),
	}, cancel
}

func TestGetHzCommandRunsWithoutError(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	if err := getHzCommand(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveSessionErrorsWithNoActiveSessions(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	if _, err := resolveSession(ctx); err == nil {
		t.Fatalf("expected an error with no active sessions")
	}
}

func TestUseCommandRejectsUnknownIdentity(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	if err := useCommand(ctx, []string{"ghost"}); err == nil {
		t.Fatalf("expected an error for an unknown identity")
	}
}

func TestUseCommandWithNoArgsClearsSelection(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	ctx.SelectedIdentity = "robot-A"
	if err := useCommand(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.SelectedIdentity != "" {
		t.Fatalf("expected selection to be cleared")
	}
}

func TestKillCommandCancelsContext(t *testing.T) {
	cfg := config.Load()
	cfg.UDPPort = 0
	cfg.SessionLogDir = t.TempDir()
	b, err := backend.New(&cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmdCtx := &CommandContext{
		Conn:       discardConn{},
		Backend:    b,
		EventBus:   eventbus.New(),
		Cancel:     cancel,
		Subscriber: eventbus.NewSubscriber(),
	}

	if err := killCommand(cmdCtx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-runCtx.Done():
	default:
		t.Fatalf("expected kill to cancel the context")
	}
}

func TestHelpCommandRejectsUnknownCommand(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	if err := helpCommand(ctx, []string{"nonexistent"}); err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
}

func TestExitCommandSignalsExit(t *testing.T) {
	ctx, cancel := newTestContext(t)
	defer cancel()

	err := exitCommand(ctx, nil)
	if err == nil || err.Error() != "exit" {
		t.Fatalf("expected the exit sentinel error, got %v", err)
	}
}
