package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oriys/lastgood/internal/logging"
	"github.com/oriys/lastgood/internal/metrics"
	"github.com/oriys/lastgood/internal/output"
	"github.com/oriys/lastgood/internal/records"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP inspector",
		Long:  "Serve the fallback snapshot, its status, recent storage errors and Prometheus metrics over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := a.cfg.Server.Addr
			if listenAddr != "" {
				addr = listenAddr
			}

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           newHandler(a),
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logging.Op().Info("lastgood inspector started", "addr", addr, "driver", driverName(a.cfg), "key", a.store.Key())
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("inspector server error: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logging.Op().Info("shutting down inspector")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown inspector: %w", err)
				}
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from config, :8089)")

	return cmd
}

// newHandler routes the inspector endpoints.
func newHandler(a *app) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /snapshot", func(w http.ResponseWriter, r *http.Request) {
		d, ok := a.store.Read(r.Context())
		if !ok {
			writeError(w, http.StatusNotFound, errNoSnapshot.Error())
			return
		}
		writeJSON(w, http.StatusOK, func(p *output.Printer) error {
			return p.PrintSnapshot(snapshotView(d, a.store.Status(r.Context())))
		})
	})

	mux.HandleFunc("PUT /snapshot", func(w http.ResponseWriter, r *http.Request) {
		format := records.FormatJSON
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "text/csv" {
			format = records.FormatCSV
		}
		rows, err := records.Load(http.MaxBytesReader(w, r.Body, 32<<20), format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var metadata map[string]any
		if q := r.URL.Query(); len(q) > 0 {
			metadata = make(map[string]any, len(q))
			for k := range q {
				metadata[k] = q.Get(k)
			}
		}
		a.store.Write(r.Context(), rows, metadata)
		writeJSON(w, http.StatusOK, func(p *output.Printer) error {
			return p.PrintStatus(statusView(a, a.store.Status(r.Context())))
		})
	})

	mux.HandleFunc("DELETE /snapshot", func(w http.ResponseWriter, r *http.Request) {
		a.store.Clear(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, func(p *output.Printer) error {
			return p.PrintStatus(statusView(a, a.store.Status(r.Context())))
		})
	})

	mux.HandleFunc("GET /errors", func(w http.ResponseWriter, r *http.Request) {
		entries := a.errs.Entries()
		out := make([]output.ErrorEntry, 0, len(entries))
		for _, e := range entries {
			item := output.ErrorEntry{
				Timestamp: e.Time().UTC().Format(time.RFC3339Nano),
				Source:    e.Source,
				Kind:      string(e.Kind),
				Message:   e.Message,
			}
			if e.Details != nil {
				item.Error = e.Details.Error()
			}
			out = append(out, item)
		}
		writeJSON(w, http.StatusOK, func(p *output.Printer) error {
			return p.PrintErrors(out)
		})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if a.backend != nil {
			if err := a.backend.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("GET /metrics", metrics.PrometheusHandler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, render func(p *output.Printer) error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	p := output.NewPrinter(output.FormatJSON)
	p.SetWriter(w)
	if err := render(p); err != nil {
		logging.Op().Error("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(p *output.Printer) error {
		return p.Print(map[string]string{"error": msg})
	})
}
