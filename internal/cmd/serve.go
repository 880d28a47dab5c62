package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hargabyte/phpimpact/internal/analysis"
	"github.com/hargabyte/phpimpact/internal/config"
	"github.com/hargabyte/phpimpact/internal/mcp"
	"github.com/hargabyte/phpimpact/internal/watch"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server answering impact queries",
	Long: `Start an MCP (Model Context Protocol) server on stdio. The index is built
once at startup and kept in memory, so agents can run many impact queries
without re-parsing the project.

With --watch the source root is watched for .php changes and the index is
rebuilt after each burst of edits. Queries keep using the previous index
until the rebuild finishes; a failed rebuild keeps it.

Available Tools:
  impact     Entrypoints affected by changing the given methods
  callers    Direct callers and callees of a method
  stats      Index size and fingerprint`,
	Example: `  phpimpact serve                       # All tools
  phpimpact serve --watch               # Rebuild on source changes
  phpimpact serve --tools impact        # Only the impact tool
  phpimpact serve --timeout 30m         # Exit after 30 idle minutes
  phpimpact serve --status              # Check if a server is running
  phpimpact serve --stop                # Stop the running server`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveWatch     bool
	serveDebounce  time.Duration
	serveTools     string
	serveTimeout   string
	serveStatus    bool
	serveStop      bool
	serveListTools bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	addSourceFlags(serveCmd)

	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Rebuild the index when .php files change")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", watch.DefaultDebounce, "Quiet period before a rebuild")
	serveCmd.Flags().StringVar(&serveTools, "tools", "", "Comma-separated list of tools to expose (default: all)")
	serveCmd.Flags().StringVar(&serveTimeout, "timeout", "0", "Inactivity timeout (0 for no timeout)")
	serveCmd.Flags().BoolVar(&serveStatus, "status", false, "Check if server is running")
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "Stop running server")
	serveCmd.Flags().BoolVar(&serveListTools, "list-tools", false, "List available tools")
}

func runServe(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if serveListTools {
		fmt.Fprintln(out, "Available MCP tools:")
		fmt.Fprintln(out)
		for _, t := range mcp.AllTools {
			fmt.Fprintf(out, "  %s\n", t)
		}
		return nil
	}
	if serveStatus {
		return checkServerStatus(cmd)
	}
	if serveStop {
		return stopServer(cmd)
	}

	timeout, err := parseDuration(serveTimeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	cfg, err := loadProject(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idx, err := buildIndex(ctx, cfg)
	if err != nil {
		return err
	}

	server, err := mcp.New(idx, mcp.Config{
		Tools:             splitList(serveTools),
		Timeout:           timeout,
		EntrypointPattern: cfg.Analysis.EntrypointPattern,
		Version:           Version,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := writePIDFile(cfg); err != nil {
		logger.Warn("serve.pid_file", "error", err)
	}
	defer removePIDFile(cfg)

	if serveWatch {
		w, err := watch.NewWatcher(cfg.SourceRoot(), serveDebounce, logger)
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Close()

		r := &watch.Rebuilder{
			Build: func(ctx context.Context) (*analysis.Index, error) {
				return buildIndex(ctx, cfg)
			},
			Swap:   server.SetIndex,
			Logger: logger,
		}
		go func() {
			if err := watch.Loop(ctx, w, r); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watch.stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		removePIDFile(cfg)
		os.Exit(0)
	}()

	// stdout carries the MCP protocol; everything else goes to the log.
	logger.Info("serve.start", "tools", server.ListTools(), "timeout", timeout, "watch", serveWatch)
	return server.ServeStdio()
}

func splitList(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseDuration(s string) (time.Duration, error) {
	if s == "0" || s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func pidFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Dir, config.ConfigDirName, "serve.pid")
}

func writePIDFile(cfg *config.Config) error {
	if _, err := config.EnsureConfigDir(cfg.Dir); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(cfg), []byte(strconv.Itoa(os.Getpid())), 0644)
}

func removePIDFile(cfg *config.Config) {
	os.Remove(pidFilePath(cfg))
}

// readPID returns the pid recorded by a running server.
func readPID(cmd *cobra.Command) (*config.Config, int, error) {
	cfg, err := loadProject(cmd)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(pidFilePath(cfg))
	if err != nil {
		return cfg, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		removePIDFile(cfg)
		return cfg, 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return cfg, pid, nil
}

func checkServerStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg, pid, err := readPID(cmd)
	if cfg == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(out, "Status: not running")
		return nil
	}

	// On Unix, FindProcess always succeeds, so send signal 0 to check
	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.Signal(0))
	}
	if err != nil {
		fmt.Fprintln(out, "Status: not running (stale PID file)")
		removePIDFile(cfg)
		return nil
	}

	fmt.Fprintf(out, "Status: running (PID %d)\n", pid)
	return nil
}

func stopServer(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	cfg, pid, err := readPID(cmd)
	if cfg == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(out, "No server running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err == nil {
		err = process.Signal(syscall.SIGTERM)
	}
	if err != nil {
		removePIDFile(cfg)
		fmt.Fprintln(out, "Server already stopped")
		return nil
	}

	fmt.Fprintf(out, "Stopped server (PID %d)\n", pid)
	return nil
}
