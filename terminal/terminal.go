package terminal

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"edmoserver/internal/backend"
	"edmoserver/internal/eventbus"
	"edmoserver/internal/obs"
)

// Start runs the line-oriented admin console (spec §6): one TCP connection
// per operator, commands dispatched through the DefaultRegistry built up by
// init.go.
func Start(ctx context.Context, port string, b *backend.Backend, cancel context.CancelFunc, bus *eventbus.Bus) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", port))
	if err != nil {
		return fmt.Errorf("error starting terminal server: %w", err)
	}
	defer listener.Close()

	obs.Debugf("terminal server listening on port %s", port)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return // context cancelled, exit gracefully
				default:
					obs.Debugf("error accepting connection: %v", err)
					continue
				}
			}
			obs.Debugf("accepted terminal connection from %s", conn.RemoteAddr())
			go handleConnection(ctx, conn, b, cancel, bus)
		}
	}()

	<-ctx.Done() // wait for cancellation
	obs.Debugf("shutting down terminal server...")
	if err := listener.Close(); err != nil {
		return fmt.Errorf("error shutting down terminal server: %w", err)
	}
	obs.Debugf("terminal server has shut down gracefully")
	return nil
}

// handleConnection handles an individual TCP connection for the terminal
// server using the command registry.
func handleConnection(ctx context.Context, conn net.Conn, b *backend.Backend, cancel context.CancelFunc, bus *eventbus.Bus) {
	defer conn.Close()
	obs.Debugf("handling terminal connection from %s", conn.RemoteAddr())

	cmdCtx := &CommandContext{
		Conn:       conn,
		Backend:    b,
		EventBus:   bus,
		Cancel:     cancel,
		Subscriber: eventbus.NewSubscriber(),
	}

	conn.Write([]byte("=== EDMO Console ===\n"))
	conn.Write([]byte("Type 'help' for available commands.\n"))
	conn.Write([]byte("> "))

	scanner := bufio.NewScanner(conn)

	for {
		select {
		case <-ctx.Done():
			obs.Debugf("context cancelled, closing terminal connection")
			conn.Write([]byte("\nTerminal session ended.\n"))
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					obs.Debugf("error reading from terminal connection: %v", err)
				} else {
					obs.Debugf("terminal connection closed by client")
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				conn.Write([]byte("> "))
				continue
			}

			args := strings.Fields(line)
			command := args[0]
			commandArgs := args[1:]

			err := DefaultRegistry.ExecuteCommand(cmdCtx, command, commandArgs)
			if err != nil {
				if err.Error() == "exit" {
					return // clean exit requested
				}
				conn.Write([]byte(fmt.Sprintf("Error: %v\n", err)))
			}

			conn.Write([]byte("> "))
		}
	}
}
