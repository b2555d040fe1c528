// Command console is the operator's terminal front end to the launchpad API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"launchpad/internal/config"
	"launchpad/internal/console"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":       {"login -email E -password P", cmdLogin},
	"list":        {"list [-page N] [-stage S] [-from YYYY-MM-DD] [-to YYYY-MM-DD]", cmdList},
	"search":      {"search TERM", cmdSearch},
	"watch":       {"watch (type search terms, one per line)", cmdWatch},
	"names":       {"names", cmdNames},
	"show":        {"show [ORG_ID]", cmdShow},
	"create-org":  {"create-org -name N -type T [-country C]", cmdCreateOrg},
	"update-org":  {"update-org [-org ID] [-name N] [-type T] [-country C]", cmdUpdateOrg},
	"delete-org":  {"delete-org -org ID", cmdDeleteOrg},
	"advance":     {"advance [-org ID] [-notify 1,2]", cmdAdvance},
	"progress":    {"progress [-org ID] PERCENT", cmdProgress},
	"due":         {"due [-org ID] YYYY-MM-DD|none", cmdDue},
	"upload":      {"upload [-org ID] -step N -name N -type T -file PATH", cmdUpload},
	"edit-doc":    {"edit-doc [-org ID] -doc ID [-name N] [-type T]", cmdEditDoc},
	"delete-doc":  {"delete-doc [-org ID] -doc ID", cmdDeleteDoc},
	"users":       {"users [ORG_ID]", cmdUsers},
	"add-user":    {"add-user [-org ID] -first F -last L -email E -role R", cmdAddUser},
	"edit-user":   {"edit-user [-org ID] -user ID [-first F] [-last L] [-email E] [-role R]", cmdEditUser},
	"delete-user": {"delete-user [-org ID] -user ID", cmdDeleteUser},
	"logins":      {"logins [ORG_ID]", cmdLogins},
	"audit":       {"audit [-q TEXT] [-after ID] [-limit N]", cmdAudit},
}

type app struct {
	cfg     config.ConsoleConfig
	session *console.Session
	out     io.Writer
	in      io.Reader
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := execute(ctx, cmd, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd command, args []string) error {
	cfg, err := config.LoadConsole()
	if err != nil {
		return err
	}
	state, err := console.LoadState(cfg.StateFile)
	if err != nil {
		return err
	}
	token := cfg.Token
	if token == "" {
		token = state.Token
	}
	a := &app{
		cfg:     cfg,
		session: console.NewSession(console.NewClient(cfg.BaseURL, token), state),
		out:     os.Stdout,
		in:      os.Stdin,
	}

	runErr := cmd.run(ctx, a, args)
	if err := state.Save(); err != nil {
		return errors.Join(runErr, fmt.Errorf("save state: %w", err))
	}
	return runErr
}

func describe(err error) string {
	var rf *console.RequestFailed
	if errors.As(err, &rf) && rf.Status == 401 {
		return rf.Error() + " (run `console login` first)"
	}
	return err.Error()
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: console <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands that take an organization default to the last one shown.")
	fmt.Fprintln(w, "env: CONSOLE_BASE_URL, CONSOLE_TOKEN, CONSOLE_STATE_FILE, CONSOLE_DEBOUNCE, CONSOLE_PER_PAGE")
}
