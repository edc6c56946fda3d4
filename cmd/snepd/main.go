// Command snepd runs a SNEP server daemon over a simulated LLCP data-link
// connection (transport/llcpsim), printing whatever records it receives via
// PUT and serving back a fixed NDEF text record on GET.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfctools/snep/config"
	"github.com/nfctools/snep/internal/logger"
	"github.com/nfctools/snep/ndef"
	"github.com/nfctools/snep/server"
	"github.com/nfctools/snep/transport/llcpsim"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	verbose    bool
	message    string
)

func main() {
	v := config.NewViper()

	rootCmd := &cobra.Command{
		Use:   "snepd",
		Short: "snepd runs a SNEP server over a simulated LLCP data-link connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(slog.LevelDebug)
			}
			if listenAddr != "" {
				v.Set("listen_addr", listenAddr)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, message)
		},
	}
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on (default localhost:4478)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.Flags().StringVar(&message, "message", "hello from snepd", "text served back on GET")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "snepd:", err)
		os.Exit(1)
	}
}

// echoHandler is a demonstration Handler: PUT logs the records it receives,
// GET always returns a single fixed text record.
type echoHandler struct {
	server.DefaultHandler
	text string
}

func newEchoHandler(text string) *echoHandler {
	h := &echoHandler{text: text}
	h.Self = h
	return h
}

func (h *echoHandler) GetRecords(ctx context.Context, records []ndef.Record) ([]ndef.Record, error) {
	return []ndef.Record{ndef.NewTextRecord("en", h.text)}, nil
}

func (h *echoHandler) PutRecords(ctx context.Context, records []ndef.Record) error {
	for _, r := range records {
		if _, text, ok := r.Text(); ok {
			logger.Info("received PUT text record", "text", text)
			continue
		}
		logger.Info("received PUT record", "tnf", r.TNF, "type", string(r.Type), "bytes", len(r.Payload))
	}
	return nil
}

func run(ctx context.Context, cfg config.ServerConfig, text string) error {
	listener := llcpsim.NewListener(cfg.ListenAddr)
	srv := server.New(listener,
		server.WithHandler(newEchoHandler(text)),
		server.WithServiceName(cfg.ServiceName),
		server.WithMaxAcceptableLength(cfg.MaxAcceptableLength),
		server.WithRecvMIU(cfg.RecvMIU),
		server.WithRecvBuf(cfg.RecvBuf),
		server.WithBacklog(cfg.Backlog),
	)
	return srv.Start(ctx)
}
