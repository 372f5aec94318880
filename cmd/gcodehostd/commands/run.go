package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gcodehost/gcodehost/config"
	"github.com/gcodehost/gcodehost/corelog"
	"github.com/gcodehost/gcodehost/engine"
)

var execLine string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gcodehost command loop",
	Long: `Start the gcodehost command loop.

With no -e flag, run reads DSL lines from stdin (one command per line:
send, print, log, repeat, macro, connect, ...) and prints every engine
Response to stdout (errors to stderr). With -e, a single command runs
non-interactively and run exits once it completes; any connection or
background task that command started ends with the process.

Examples:
  # Interactive session
  gcodehostd run

  # One-shot command
  gcodehostd run -e "help connect"`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&execLine, "exec", "e", "", "run a single DSL command and exit")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := corelog.NewWithHandler(corelog.NewTextHandler(slogLevel(cfg.Logging.Level)))

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		reg = registry
		addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	eng := engine.NewWithMetrics(log, cfg.Session.ToSessionConfig(), reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub := eng.Subscribe()
	printed := make(chan struct{})
	go func() {
		printResponses(sub)
		close(printed)
	}()
	defer func() {
		sub.Close()
		<-printed
	}()

	if execLine != "" {
		eng.Dispatch(ctx, execLine)
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		eng.Dispatch(ctx, line)
	}
	return scanner.Err()
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printResponses(sub *engine.ResponseSubscription) {
	for {
		r, ok := sub.Next()
		if !ok {
			return
		}
		switch r.Kind {
		case engine.RespError:
			fmt.Fprintln(os.Stderr, "error: "+r.Text)
		case engine.RespLine:
			fmt.Println(r.Text)
		case engine.RespClear:
			fmt.Print("\033[2J\033[H")
		case engine.RespQuit:
			os.Exit(0)
		default:
			fmt.Println(r.Text)
		}
	}
}
