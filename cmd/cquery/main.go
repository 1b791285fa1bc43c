package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/golang/glog"
	"github.com/mattn/go-isatty"

	"github.com/five82/cquery/internal/app"
	"github.com/five82/cquery/query"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	Manifest string `help:"Query manifest, TOML or YAML (default ~/.config/cquery/queries.toml)." short:"m" env:"CQUERY_MANIFEST"`
	Verbose  int    `help:"Log more, repeatable." short:"v" type:"counter"`
}

// CLI is the top-level command structure for cquery.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Watch   WatchCmd         `cmd:"" help:"Watch every prepared query."`
	Get     GetCmd           `cmd:"" help:"Fetch one prepared query and print its JSON."`
	Info    VersionCmd       `cmd:"" name:"version" help:"Print version information."`
}

// WatchCmd runs the dashboard, or a line printer when stdout is not a TTY.
type WatchCmd struct {
	Theme       string `help:"Dashboard theme (Dracula, Slate, Nord)."`
	Plain       bool   `help:"Force plain text output even if stdout is a TTY." default:"false"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address." placeholder:"HOST:PORT"`
	Prefs       string `help:"Dashboard preferences file (default ~/.config/cquery/prefs.toml)." placeholder:"PATH"`
}

// Run executes the watch command.
func (w *WatchCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, app.Options{
		ManifestPath: g.Manifest,
		ThemeName:    w.Theme,
		Plain:        w.Plain || !isTerminal(os.Stdout),
		MetricsAddr:  w.MetricsAddr,
		PrefsPath:    w.Prefs,
	})
}

// GetCmd fetches one query once.
type GetCmd struct {
	Key     string        `arg:"" help:"Query key from the manifest."`
	Timeout time.Duration `help:"Give up after this long." default:"10s"`
}

// Run executes the get command.
func (c *GetCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Get(ctx, app.GetOptions{
		ManifestPath: g.Manifest,
		Key:          c.Key,
		Timeout:      c.Timeout,
	})
}

// VersionCmd prints the build version.
type VersionCmd struct{}

// Run executes the version command.
func (v *VersionCmd) Run(kctx *kong.Context) error {
	_, err := fmt.Fprintf(kctx.Stdout, "cquery %s (%s)\n", version, commit)
	return err
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// configureLogging routes --verbose into glog's flags.
func (g *Globals) configureLogging() {
	if g.Verbose <= 0 {
		return
	}
	_ = flag.Set("v", strconv.Itoa(g.Verbose))
	_ = flag.Set("alsologtostderr", "true")
}

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, query.ErrUnknownQuery) {
		return exitUsage
	}
	return exitFailure
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cquery"),
		kong.Description("Prepared HTTP JSON queries with coalescing, polling and a live dashboard."),
		kong.UsageOnError(),
		kong.Vars{"version": version + " " + commit},
	)
	cli.configureLogging()
	defer glog.Flush()

	if err := ctx.Run(&cli.Globals); err != nil {
		glog.Flush()
		fmt.Fprintf(os.Stderr, "cquery: %v\n", err)
		os.Exit(exitCode(err))
	}
}
