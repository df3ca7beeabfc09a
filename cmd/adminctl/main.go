// Command adminctl is a terminal front end for the admin console: it signs
// in, browses and edits the gateway's collections under the signed-in role's
// permissions, and shows the dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adminpanel.org/internal/app"
	"adminpanel.org/internal/config"
	"adminpanel.org/internal/obs"
)

var version = "0.1.0"

const usage = `usage: adminctl <command> [flags] [args]

commands:
  login -email E [-password P]   sign in (password falls back to ADMIN_PASSWORD)
  logout                         forget the stored session
  whoami                         show the signed-in user and role
  menu                           list the modules the role may open
  can <module>                   show the CRUD flags for a module
  list <entity> [-page N] [-search S] [-category C] [-filter k=v]
  get <entity> <id>
  create <entity> -f payload.json [-media file]
  update <entity> <id> -f payload.json [-media file]
  delete <entity> <id>
  remove <entity> <id>
  dashboard
  version
`

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	if args[0] == "version" {
		fmt.Fprintln(stdout, "adminctl", version)
		return 0
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(stderr, "adminctl:", err)
		return 1
	}
	cfg, err := config.LoadConsole()
	if err != nil {
		fmt.Fprintln(stderr, "adminctl:", err)
		return 1
	}
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "adminctl:", err)
		return 1
	}
	defer a.Close()

	if err := a.Start(ctx); err != nil {
		obs.Logger().Warn().Err(err).Msg("session restore failed")
	}

	cli := &cli{app: a, out: stdout, errOut: stderr}
	if err := cli.dispatch(ctx, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, "adminctl:", err)
			fmt.Fprint(stderr, usage)
			return 2
		}
		fmt.Fprintln(stderr, "adminctl:", err)
		return 1
	}
	return 0
}

func serveMetrics(addr string) {
	obs.Init()
	obs.InitBuildInfo("adminctl", version, "")
	srv := &http.Server{
		Addr:              addr,
		Handler:           obs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger().Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
}
