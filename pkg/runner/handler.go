package runner

import (
	"context"
	"strings"

	"github.com/aretw0/harness/pkg/domain"
)

// CommandKind identifies what a Command does to the harness.
type CommandKind int

const (
	CommandEdit       CommandKind = iota // append Text as a new line of input
	CommandSet                           // replace the input with Text
	CommandRun                           // trigger an evaluation
	CommandClear                         // empty the input
	CommandShowInput                     // print the input
	CommandShowOutput                    // print the rendered output
	CommandHelp                          // print the command list
	CommandQuit                          // leave the loop
	CommandUnknown                       // unrecognised ":" command
)

// Command is one user request.
type Command struct {
	Kind CommandKind
	Text string
}

// textCommands maps REPL keywords to commands.
var textCommands = map[string]CommandKind{
	":run":    CommandRun,
	":r":      CommandRun,
	":clear":  CommandClear,
	":input":  CommandShowInput,
	":output": CommandShowOutput,
	":help":   CommandHelp,
	":quit":   CommandQuit,
	":q":      CommandQuit,
}

// ParseCommand turns one REPL line into a Command.
// Lines that do not start with ':' edit the input verbatim.
func ParseCommand(line string) Command {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, "::") {
		// "::" escapes a literal leading colon
		if strings.HasPrefix(trimmed, "::") {
			line = strings.Replace(line, "::", ":", 1)
		}
		return Command{Kind: CommandEdit, Text: line}
	}
	if kind, ok := textCommands[trimmed]; ok {
		return Command{Kind: kind}
	}
	return Command{Kind: CommandUnknown, Text: trimmed}
}

// HelpText lists the REPL commands.
const HelpText = `Type to edit the input; each line is appended.
  :run     evaluate the input and show the result
  :clear   empty the input
  :input   show the input
  :output  show the last rendered output
  :quit    leave
Start a line with "::" to enter a literal ':'.`

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Read blocks until the user sends one or more commands.
	// io.EOF ends the session normally.
	Read(ctx context.Context) ([]Command, error)

	// Outcome presents the result of an evaluation.
	// output is the renderer content after the cycle.
	Outcome(ctx context.Context, outcome domain.Outcome, output string) error

	// Show presents the input or output buffer on request.
	Show(ctx context.Context, kind CommandKind, text string) error

	// SystemOutput presents a meta-message to the user (e.g. help, status updates).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (JSON to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
