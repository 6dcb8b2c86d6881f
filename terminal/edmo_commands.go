// terminal/edmo_commands.go
package terminal

import (
	"fmt"
	"strconv"

	"edmoserver/internal/session"
)

// resolveSession picks the session a session-scoped command should act on:
// the explicitly selected identity if one was set with "use", or the sole
// active session if there is exactly one, mirroring the original console's
// next(iter(activeSessions.values())).
func resolveSession(ctx *CommandContext) (*session.Session, error) {
	if ctx.SelectedIdentity != "" {
		s, ok := ctx.Backend.GetSession(ctx.SelectedIdentity)
		if !ok {
			return nil, fmt.Errorf("no active session for %q", ctx.SelectedIdentity)
		}
		return s, nil
	}

	sessions := ctx.Backend.Sessions()
	switch len(sessions) {
	case 0:
		return nil, fmt.Errorf("no active sessions")
	case 1:
		return sessions[0], nil
	default:
		return nil, fmt.Errorf("more than one active session, select one with \"use <identity>\"")
	}
}

func sessionsCommand(ctx *CommandContext, args []string) error {
	sessions := ctx.Backend.Sessions()
	if len(sessions) == 0 {
		ctx.Conn.Write([]byte("No active sessions.\n"))
		return nil
	}

	ctx.Conn.Write([]byte("Active sessions:\n"))
	for _, s := range sessions {
		info := s.GetSessionInfo()
		ctx.Conn.Write([]byte(fmt.Sprintf("  %s players=%v help=%d\n", info.RobotID, info.Names, info.HelpNumber)))
	}
	return nil
}

func useCommand(ctx *CommandContext, args []string) error {
	if len(args) < 1 {
		ctx.SelectedIdentity = ""
		ctx.Conn.Write([]byte("Cleared session selection.\n"))
		return nil
	}

	if _, ok := ctx.Backend.GetSession(args[0]); !ok {
		return fmt.Errorf("no active session for %q", args[0])
	}
	ctx.SelectedIdentity = args[0]
	ctx.Conn.Write([]byte(fmt.Sprintf("Selected session %s\n", args[0])))
	return nil
}

func getHzCommand(ctx *CommandContext, args []string) error {
	ctx.Conn.Write([]byte(fmt.Sprintf("%d\n", ctx.Backend.TickHz())))
	return nil
}

func killCommand(ctx *CommandContext, args []string) error {
	ctx.Conn.Write([]byte("Shutting down server...\n"))
	ctx.Cancel()
	return nil
}

func startLogCommand(ctx *CommandContext, args []string) error {
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	if err := s.StartLog(); err != nil {
		return err
	}
	ctx.Conn.Write([]byte("Logging started.\n"))
	return nil
}

func stopLogCommand(ctx *CommandContext, args []string) error {
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	if err := s.StopLog(); err != nil {
		return err
	}
	ctx.Conn.Write([]byte("Logging stopped.\n"))
	return nil
}

// startCommand runs the scripted multi-motor program: "start <anomalyTag>
// <count>". Blocks the connection's console loop for the program's
// duration, matching the original's awaited console command.
func startCommand(ctx *CommandContext, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: start <anomalyTag> <count>")
	}
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", args[1], err)
	}

	ctx.Conn.Write([]byte(fmt.Sprintf("Running program %q x%d...\n", args[0], count)))
	s.RunProgram(args[0], count)
	ctx.Conn.Write([]byte("Program complete.\n"))
	return nil
}

// runCommand runs a single scripted sweep on one motor: "run <motorId>".
func runCommand(ctx *CommandContext, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: run <motorId>")
	}
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	motorID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid motor id %q: %w", args[0], err)
	}

	ctx.Conn.Write([]byte(fmt.Sprintf("Running sweep on motor %d...\n", motorID)))
	s.RunSweep(motorID)
	ctx.Conn.Write([]byte("Sweep complete.\n"))
	return nil
}

func stopMotorsCommand(ctx *CommandContext, args []string) error {
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	for i := 0; i < s.NumMotors(); i++ {
		s.UpdateMotor(i, "freq 0")
	}
	ctx.Conn.Write([]byte("Motors stopped.\n"))
	return nil
}

func resetMotorsCommand(ctx *CommandContext, args []string) error {
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	for i := 0; i < s.NumMotors(); i++ {
		s.UpdateMotor(i, "amp 0")
		s.UpdateMotor(i, "freq 0")
	}
	ctx.Conn.Write([]byte("Motors reset.\n"))
	return nil
}

// motorToken forwards a direct motor parameter token registered under its
// own name ("freq", "off", "amp", "phb", "rev", "ord"): "<token> <value>
// <motorId>", e.g. "amp 45 0".
func motorToken(ctx *CommandContext, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: <freq|off|amp|phb|rev|ord> <value> <motorId>")
	}
	s, err := resolveSession(ctx)
	if err != nil {
		return err
	}
	motorID, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid motor id %q: %w", args[2], err)
	}
	s.UpdateMotor(motorID, args[0]+" "+args[1])
	return nil
}

func helpCommand(ctx *CommandContext, args []string) error {
	if len(args) == 0 {
		ctx.Conn.Write([]byte("Available commands:\n"))
		for _, cmd := range DefaultRegistry.ListCommands() {
			ctx.Conn.Write([]byte(fmt.Sprintf("  %-10s - %s\n", cmd.Name, cmd.Description)))
		}
		ctx.Conn.Write([]byte("\nUse 'help <command>' for detailed usage.\n"))
		return nil
	}

	cmd, exists := DefaultRegistry.GetCommand(args[0])
	if !exists {
		return fmt.Errorf("unknown command: %s", args[0])
	}

	ctx.Conn.Write([]byte(fmt.Sprintf("Command: %s\n", cmd.Name)))
	ctx.Conn.Write([]byte(fmt.Sprintf("Description: %s\n", cmd.Description)))
	ctx.Conn.Write([]byte(fmt.Sprintf("Usage: %s\n", cmd.Usage)))
	return nil
}

func exitCommand(ctx *CommandContext, args []string) error {
	ctx.Conn.Write([]byte("Goodbye!\n"))
	return fmt.Errorf("exit") // Special error to signal exit
}

func quitCommand(ctx *CommandContext, args []string) error {
	return exitCommand(ctx, args)
}
