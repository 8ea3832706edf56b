// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Global flags, command dispatch and help for chimera.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/app"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/model"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// GLOBAL ARGUMENTS
// =============================================================================

// Args holds the global flags and the selected command.
type Args struct {
	JSON       bool
	Verbose    bool
	Quiet      bool
	Workspace  string
	ConfigPath string

	// Command is the command name, "" for help.
	Command string
	// Rest are the arguments after the command name, global flags removed.
	Rest []string
}

// ParseArgs extracts global flags from anywhere in argv. Everything after
// "--" is left to the command.
func ParseArgs(argv []string) (Args, error) {
	var args Args
	var rest []string

	valueOf := func(i int, name string) (string, int, error) {
		if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "-") {
			return "", i, ErrMissingArgument(name, "chimera "+name+" <value> <command>")
		}
		return argv[i+1], i + 1, nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		if arg == "--" {
			rest = append(rest, argv[i:]...)
			break
		}
		name, value, hasValue := strings.Cut(arg, "=")

		var err error
		switch name {
		case "--json":
			args.JSON = true
		case "--verbose", "-v":
			args.Verbose = true
		case "--quiet", "-q":
			args.Quiet = true
		case "--workspace", "-w":
			if !hasValue {
				value, i, err = valueOf(i, "--workspace")
			}
			args.Workspace = value
		case "--config":
			if !hasValue {
				value, i, err = valueOf(i, "--config")
			}
			args.ConfigPath = value
		case "--help", "-h":
			if args.Command == "" {
				args.Command = "help"
			} else {
				rest = append(rest, "--help")
			}
		case "--version":
			if args.Command == "" {
				args.Command = "version"
			}
		default:
			if args.Command == "" && !strings.HasPrefix(arg, "-") {
				args.Command = strings.ToLower(arg)
			} else {
				rest = append(rest, arg)
			}
		}
		if err != nil {
			return args, err
		}
	}

	args.Rest = rest
	return args, nil
}

// =============================================================================
// COMMAND TABLE
// =============================================================================

// needs says what a command requires before its handler runs.
type needs int

const (
	needNothing needs = iota
	needConfig
	needApp
	needAuth
)

type command struct {
	name     string
	aliases  []string
	summary  string
	usage    string
	needs    needs
	switches []string
	run      func(ctx context.Context, e *Env) error
}

var commandTable []*command

func commandByName(name string) *command {
	for _, c := range commandTable {
		if c.name == name {
			return c
		}
		for _, a := range c.aliases {
			if a == name {
				return c
			}
		}
	}
	return nil
}

func init() {
	commandTable = []*command{
		{name: "help", summary: "Show help for chimera or a command", usage: "chimera help [command]", run: runHelp},
		{name: "version", summary: "Show version information", usage: "chimera version", run: runVersion},
		{name: "config", summary: "Show or change local configuration", usage: configUsage, needs: needConfig, run: runConfig},

		{name: "login", summary: "Sign in", usage: "chimera login [--email EMAIL] [--password PASSWORD]", needs: needApp, run: runLogin},
		{name: "register", summary: "Create an account and sign in", usage: "chimera register [--name NAME] [--email EMAIL]", needs: needApp, run: runRegister},
		{name: "logout", summary: "Sign out and clear the local session", usage: "chimera logout", needs: needApp, run: runLogout},
		{name: "whoami", summary: "Show the signed-in user", usage: "chimera whoami", needs: needAuth, run: runWhoami},

		{name: "workspaces", aliases: []string{"workspace", "ws"}, summary: "Manage workspaces", usage: workspacesUsage, needs: needAuth, switches: []string{"yes"}, run: runWorkspaces},
		{name: "conversations", aliases: []string{"conversation", "conv", "c"}, summary: "Manage conversations and their messages", usage: conversationsUsage, needs: needAuth, switches: []string{"yes", "all"}, run: runConversations},
		{name: "send", summary: "Send one message to a conversation", usage: "chimera send <conversation> <text...> [--no-ai]", needs: needAuth, switches: []string{"no-ai"}, run: runSend},
		{name: "chat", summary: "Interactive chat with line editing and slash commands", usage: "chimera chat <conversation> [--no-ai]", needs: needAuth, switches: []string{"no-ai"}, run: runChat},
		{name: "tui", summary: "Full-screen chat view", usage: "chimera tui <conversation> [--no-ai]", needs: needAuth, switches: []string{"no-ai"}, run: runTUI},
		{name: "memories", aliases: []string{"memory", "mem"}, summary: "Manage workspace memories", usage: memoriesUsage, needs: needAuth, switches: []string{"yes", "summarize"}, run: runMemories},
		{name: "integrations", aliases: []string{"integration", "int"}, summary: "Manage provider API keys and models", usage: integrationsUsage, needs: needAuth, switches: []string{"yes", "connected"}, run: runIntegrations},
		{name: "team", summary: "Manage workspace members", usage: teamUsage, needs: needAuth, switches: []string{"yes"}, run: runTeam},
		{name: "invitations", aliases: []string{"invitation", "inv"}, summary: "Accept or decline workspace invitations", usage: invitationsUsage, needs: needAuth, run: runInvitations},
		{name: "mcp", summary: "Call the Model Context Protocol endpoints", usage: mcpUsage, needs: needAuth, run: runMCP},
		{name: "settings", summary: "Account settings, retention and data export", usage: settingsUsage, needs: needAuth, switches: []string{"yes"}, run: runSettings},
	}
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes one chimera invocation.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// ClientOptions are appended to the API client options. Tests use them
	// to shorten retries.
	ClientOptions []api.Option
}

// NewRunner returns a Runner on the process's standard streams.
func NewRunner() *Runner {
	return &Runner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes argv and returns the exit code.
func (r *Runner) Run(ctx context.Context, argv []string) int {
	args, err := ParseArgs(argv)
	if err != nil {
		DisplayError(r.errWriter(args), "", err, args.JSON)
		return GetExitCode(err)
	}
	if args.Command == "" {
		args.Command = "help"
	}

	cmd := commandByName(args.Command)
	if cmd == nil {
		err := &UsageError{Message: "unknown command: " + args.Command + " (run 'chimera help')"}
		DisplayError(r.errWriter(args), args.Command, err, args.JSON)
		return GetExitCode(err)
	}

	err = r.execute(ctx, cmd, args)
	if err != nil {
		DisplayError(r.errWriter(args), cmd.name, err, args.JSON)
	}
	return GetExitCode(err)
}

// errWriter is stdout in JSON mode so the failure is the one JSON document.
func (r *Runner) errWriter(args Args) io.Writer {
	if args.JSON {
		return r.Stdout
	}
	return r.Stderr
}

func (r *Runner) execute(ctx context.Context, cmd *command, args Args) error {
	e := &Env{
		Args:    args,
		Params:  NewArgParser(args.Rest, cmd.switches...),
		Out:     r.Stdout,
		Err:     r.Stderr,
		Prompt:  NewPrompter(r.Stdin, r.Stderr),
		command: cmd,
		runner:  r,
	}
	if e.Params.HasFlag("help") {
		return runHelp(ctx, &Env{Args: args, Params: NewArgParser([]string{cmd.name}), Out: r.Stdout, command: cmd})
	}
	if cmd.needs == needNothing {
		return cmd.run(ctx, e)
	}

	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return err
	}
	e.Config = cfg
	if cmd.needs == needConfig {
		return cmd.run(ctx, e)
	}

	a, err := app.New(cfg, app.Options{
		Version:           Version,
		Verbose:           args.Verbose,
		Stderr:            r.Stderr,
		HTTPClientOptions: r.ClientOptions,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	e.App = a

	if cmd.needs == needAuth {
		if err := a.RequireAuth(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, e)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// =============================================================================
// ENV
// =============================================================================

// Env is what a command handler works with.
type Env struct {
	Args   Args
	Params *ArgParser
	Config *config.Config
	App    *app.App
	Out    io.Writer
	Err    io.Writer
	Prompt *Prompter

	command *command
	runner  *Runner
}

// emit writes data as the JSON response, or calls text in text mode.
func (e *Env) emit(data any, text func()) error {
	if e.Args.JSON {
		return NewJSONResponse(e.command.name, data).Write(e.Out)
	}
	text()
	return nil
}

// done reports a completed action. JSON mode gets data; text mode gets msg
// unless --quiet.
func (e *Env) done(data any, msg string) error {
	return e.emit(data, func() {
		if !e.Args.Quiet {
			fmt.Fprintln(e.Out, Success(msg))
		}
	})
}

// notef prints progress chatter to stderr unless quiet or in JSON mode.
func (e *Env) notef(format string, args ...any) {
	if e.Args.Quiet || e.Args.JSON {
		return
	}
	fmt.Fprintf(e.Err, format+"\n", args...)
}

// confirm asks before a destructive action.
func (e *Env) confirm(action string, phrase string) (bool, error) {
	ok, err := RequireConfirmation(e.Prompt, action, ConfirmationOptions{
		Yes:      e.Params.BoolFlag("yes"),
		JSONMode: e.Args.JSON,
		Phrase:   phrase,
	})
	if err == nil && !ok {
		e.notef("Cancelled.")
	}
	return ok, err
}

// sub returns the subcommand, or def when none was given.
func (e *Env) sub(def string) string {
	if s := e.Params.Subcommand(); s != "" {
		return strings.ToLower(s)
	}
	return def
}

// workspace returns the workspace to act on (--workspace or the active one).
func (e *Env) workspace(ctx context.Context) (model.Workspace, error) {
	return e.App.ResolveWorkspace(ctx, e.Args.Workspace)
}

// =============================================================================
// HELP AND VERSION
// =============================================================================

const usageHeader = `chimera - terminal client for the Chimera Protocol

Chimera keeps shared conversations with AI models and a memory bank of
notes that can be injected into any conversation.

Usage:
  chimera <command> [subcommand] [flags]
`

const globalFlagsHelp = `Global flags:
  --json               Machine-readable output (one JSON document on stdout)
  -v, --verbose        Log to stderr as well as the log file
  -q, --quiet          Only print results
  -w, --workspace ID   Act on this workspace (ID or name) instead of the active one
  --config PATH        Use this config file
`

func runHelp(_ context.Context, e *Env) error {
	if name := e.Params.Subcommand(); name != "" {
		cmd := commandByName(strings.ToLower(name))
		if cmd == nil {
			return &UsageError{Message: "unknown command: " + name}
		}
		fmt.Fprintln(e.Out, TitleStyle.Render("chimera "+cmd.name)+" - "+cmd.summary)
		fmt.Fprintln(e.Out)
		fmt.Fprintln(e.Out, "Usage:")
		for _, line := range strings.Split(cmd.usage, "\n") {
			fmt.Fprintln(e.Out, "  "+line)
		}
		if len(cmd.aliases) > 0 {
			fmt.Fprintln(e.Out)
			fmt.Fprintln(e.Out, "Aliases: "+strings.Join(cmd.aliases, ", "))
		}
		fmt.Fprintln(e.Out)
		fmt.Fprint(e.Out, globalFlagsHelp)
		return nil
	}

	fmt.Fprint(e.Out, usageHeader)
	fmt.Fprintln(e.Out)
	fmt.Fprintln(e.Out, "Commands:")
	cmds := append([]*command(nil), commandTable...)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	for _, c := range cmds {
		fmt.Fprintf(e.Out, "  %-16s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(e.Out)
	fmt.Fprint(e.Out, globalFlagsHelp)
	fmt.Fprintln(e.Out)
	fmt.Fprintln(e.Out, "Run 'chimera help <command>' for a command's subcommands.")
	return nil
}

// VersionData is the JSON form of `chimera version`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func runVersion(_ context.Context, e *Env) error {
	data := VersionData{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: goVersion(),
		Platform:  platform(),
	}
	return e.emit(data, func() {
		fmt.Fprintf(e.Out, "chimera %s\n", Version)
		Fields(e.Out,
			"Commit", GitCommit,
			"Built", BuildDate,
			"Go", data.GoVersion,
			"Platform", data.Platform,
		)
	})
}
