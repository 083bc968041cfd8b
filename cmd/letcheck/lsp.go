package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/j340m3/compiler/pkg/lsp"
)

func newLSPCmd(flags *Flags) *cobra.Command {
	var logFile string
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run a language server on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, *flags)
			if err != nil {
				return err
			}

			var logDest io.Writer = os.Stderr
			if logFile != "" {
				f, err := os.Create(logFile)
				if err != nil {
					return errors.Wrap(err, "open lsp log")
				}
				defer f.Close() //nolint:errcheck
				logDest = f
			}
			level := slog.LevelInfo
			if flags.Debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(logDest, &slog.HandlerOptions{
				Level: level,
			}))

			logger.InfoContext(cmd.Context(), "starting LSP server")
			handler := lsp.NewHandler(config.Check, logger)
			srv := jrpc2.NewServer(handler.Methods(), &jrpc2.ServerOptions{
				AllowPush: true,
				Logger:    func(text string) { logger.Debug(text) },
			})
			srv.Start(channel.LSP(stdrwc{}, stdrwc{}))
			logger.InfoContext(cmd.Context(), "LSP server closed", "error", srv.Wait())
			return nil
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Path to LSP log file (stderr if not specified)")
	return cmd
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
