package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/b3notifier/internal/app"
	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"
	"github.com/bobmcallan/b3notifier/internal/services/report"
)

// profileWait bounds how long a command waits for the profile after login.
const profileWait = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalOpts are the persistent flags shared by every command.
type globalOpts struct {
	configPath string
	output     string
}

func (o *globalOpts) format() (report.Format, error) {
	return report.ParseFormat(o.output)
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "b3notifier",
		Short:         "B3 stock watchlist and price alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $B3NOTIFIER_CONFIG or the user config dir)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "output format: table|json|yaml|markdown")

	root.AddCommand(newVersionCmd(opts))
	root.AddCommand(newRegisterCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newLogoutCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newStocksCmd(opts))
	root.AddCommand(newAlertsCmd(opts))
	root.AddCommand(newUpdatesCmd(opts))
	root.AddCommand(newTUICmd(opts))
	return root
}

func loadApp(cmd *cobra.Command, opts *globalOpts) (*app.App, error) {
	return app.NewApp(cmd.Context(), opts.configPath)
}

// requireLogin rejects commands that need a session when none is stored.
func requireLogin(a *app.App) error {
	if !a.Session.IsAuthenticated() {
		return fmt.Errorf("%w: run `b3notifier login` first", models.ErrNotAuthenticated)
	}
	return nil
}

func newVersionCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and configuration summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := common.LoadConfig(app.ResolveConfigPath(opts.configPath))
			if err != nil {
				return err
			}
			common.PrintBanner(cmd.OutOrStdout(), config)
			return nil
		},
	}
}

// prompter reads answers line by line from the command's stdin. When stdin
// is a terminal, secrets are read with echo disabled.
type prompter struct {
	in     *bufio.Reader
	out    io.Writer
	tty    uintptr
	noEcho bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	stdin := cmd.InOrStdin()
	p := &prompter{in: bufio.NewReader(stdin), out: cmd.ErrOrStderr()}
	if f, ok := stdin.(interface{ Fd() uintptr }); ok && term.IsTerminal(f.Fd()) {
		p.tty, p.noEcho = f.Fd(), true
	}
	return p
}

// askSecret reads a line without echoing it on a terminal.
func (p *prompter) askSecret(label string) (string, error) {
	if !p.noEcho {
		return p.ask(label)
	}
	_, _ = fmt.Fprintf(p.out, "%s: ", label)
	secret, err := term.ReadPassword(p.tty)
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return string(secret), nil
}

func (p *prompter) ask(label string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *prompter) askIfEmpty(value, label string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	return p.ask(label)
}
