// Command smartstock opens the configured inventory store, authenticates a
// user, and runs the interactive inventory shell.
package main

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartstock/internal/blob"
	"smartstock/internal/cli"
	"smartstock/internal/config"
	"smartstock/internal/core"
	"smartstock/internal/report"
	"smartstock/pkg/domain"
)

const maxLoginAttempts = 3

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file (default ./smartstock.yaml when present)")
	user := fs.String("user", "", "username (prompted when empty)")
	password := fs.String("password", "", "password (prompted when empty)")
	tracePath := fs.String("trace", "", "append JSON trace lines for every operation to this file")
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "smartstock: %v\n", err)
		return 1
	}
	logger := newLogger(stderr, cfg.Log)

	store, err := core.OpenPersistentStore(ctx, *cfg)
	if err != nil {
		logger.Error("open store", "driver", cfg.Storage.Driver, "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithLowStockThreshold(cfg.Inventory.LowStockThreshold),
	}

	archive, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		logger.Warn("report export disabled", "driver", cfg.Blob.Driver, "error", err)
	} else {
		opts = append(opts, core.WithReportExporter(report.NewExporter(archive)))
	}

	metrics, handler, err := newMetrics(cfg.Metrics)
	if err != nil {
		logger.Error("metrics", "error", err)
		return 1
	}
	if metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	if handler != nil && cfg.Metrics.Listen != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Listen, handler, logger)
		if err != nil {
			logger.Error("metrics listener", "listen", cfg.Metrics.Listen, "error", err)
			return 1
		}
		defer shutdown()
	}

	if *tracePath != "" {
		f, err := os.OpenFile(*tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			logger.Error("open trace file", "path", *tracePath, "error", err)
			return 1
		}
		defer f.Close()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}

	svc := core.NewService(store, opts...)
	in := bufio.NewReader(stdin)
	session, err := login(ctx, svc, in, stdout, *user, *password)
	if err != nil {
		fmt.Fprintf(stderr, "smartstock: %v\n", err)
		return 1
	}

	// From here an interrupt ends the shell instead of the process.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if err := cli.New(session, in, stdout).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shell", "error", err)
		return 1
	}
	return 0
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// newMetrics returns the recorder for the configured backend and the HTTP
// handler that exposes it.
func newMetrics(cfg config.MetricsConfig) (core.MetricsRecorder, http.Handler, error) {
	switch cfg.Backend {
	case "prometheus":
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, nil, err
		}
		return rec, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
	case "expvar", "":
		return core.NewExpvarMetricsRecorder(""), expvar.Handler(), nil
	default:
		return nil, nil, nil
	}
}

// serveMetrics exposes handler on /metrics and returns a function that stops
// the listener.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// login authenticates with the flag credentials, or prompts on in when they
// are missing. Prompting allows a few attempts.
func login(ctx context.Context, svc *core.Service, in *bufio.Reader, out io.Writer, user, password string) (*core.Session, error) {
	if user != "" && password != "" {
		return svc.Login(ctx, user, password)
	}
	var lastErr error
	for attempt := 0; attempt < maxLoginAttempts; attempt++ {
		u := user
		if u == "" {
			var err error
			if u, err = prompt(in, out, "Username: "); err != nil {
				return nil, err
			}
		}
		p, err := prompt(in, out, "Password: ")
		if err != nil {
			return nil, err
		}
		session, err := svc.Login(ctx, u, p)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrAuthFailed) {
			return nil, err
		}
		fmt.Fprintln(out, "Invalid username or password.")
		lastErr = err
	}
	return nil, lastErr
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no credentials supplied")
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
