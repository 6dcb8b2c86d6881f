package terminal

// Auto-register commands using init()
func init() {
	RegisterCommand("sessions", "List active robot sessions", "sessions", sessionsCommand)
	RegisterCommand("use", "Select the session admin commands act on", "use [identity]", useCommand)
	RegisterCommand("getHz", "Report the tick scheduler rate", "getHz", getHzCommand)
	RegisterCommand("kill", "Shut down the server", "kill", killCommand)
	RegisterCommand("startlog", "Start recording the selected session", "startlog", startLogCommand)
	RegisterCommand("stoplog", "Stop recording the selected session", "stoplog", stopLogCommand)
	RegisterCommand("start", "Run the scripted multi-motor program", "start <anomalyTag> <count>", startCommand)
	RegisterCommand("run", "Run a scripted sweep on one motor", "run <motorId>", runCommand)
	RegisterCommand("stop", "Zero every motor's frequency", "stop", stopMotorsCommand)
	RegisterCommand("reset", "Zero every motor's amplitude and frequency", "reset", resetMotorsCommand)

	for _, token := range []string{"freq", "off", "amp", "phb", "rev", "ord"} {
		RegisterCommand(token, "Set a motor parameter directly", token+" <value> <motorId>", func(ctx *CommandContext, args []string) error {
			return motorToken(ctx, append([]string{token}, args...))
		})
	}

	RegisterCommand("help", "Show available commands", "help [command]", helpCommand)
	RegisterCommand("exit", "Exit terminal session", "exit", exitCommand)
	RegisterCommand("quit", "Exit terminal session", "quit", quitCommand)
	RegisterCommand("subscribe", "Subscribe to server events", "subscribe <event_type>", subscribeCommand)
	RegisterCommand("unsubscribe", "Unsubscribe from server events", "unsubscribe <event_type>", unsubscribeCommand)
	RegisterCommand("publish", "Publish an event on the server bus", "publish <event_type> <data>", publishCommand)
}
