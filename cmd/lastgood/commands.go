package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/oriys/lastgood/internal/fallback"
	"github.com/oriys/lastgood/internal/observability"
	"github.com/oriys/lastgood/internal/output"
	"github.com/oriys/lastgood/internal/records"
	"github.com/oriys/lastgood/internal/storage"
)

func writeCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		meta   []string
	)

	cmd := &cobra.Command{
		Use:   "write [file]",
		Short: "Save records as the fallback snapshot",
		Long:  "Load records from a CSV file with a header row or a JSON array of objects and save them as the fallback snapshot. Reads stdin when file is omitted or -.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := records.ParseFormat(format)
			if err != nil {
				return err
			}
			metadata, err := records.ParseKeyValues(meta)
			if err != nil {
				return err
			}

			var rows []map[string]any
			if len(args) == 0 || args[0] == "-" {
				if f == "" {
					f = records.FormatCSV
				}
				rows, err = records.Load(cmd.InOrStdin(), f)
			} else {
				rows, err = records.LoadFile(args[0], f)
			}
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, span := observability.StartSpan(cmd.Context(), "cli.write")
			defer span.End()

			a.store.Write(ctx, rows, metadata)
			if err := a.storageErr("write"); err != nil {
				return err
			}

			if !a.store.Persistent() {
				a.printer.Warning("Driver %s keeps the snapshot in memory for this process only", storage.DriverNone)
			}
			a.printer.Success("Saved %d records under key %q", len(rows), a.store.Key())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format (csv, json); detected from the file extension when empty")
	cmd.Flags().StringArrayVarP(&meta, "meta", "m", nil, "Snapshot metadata (KEY=VALUE)")

	return cmd
}

func readCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Print the fallback snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			d, ok := a.store.Read(ctx)
			if !ok {
				if err := a.storageErr("read"); err != nil {
					return err
				}
				return errNoSnapshot
			}
			return a.printer.PrintSnapshot(snapshotView(d, a.store.Status(ctx)))
		},
	}
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a snapshot exists, its age and freshness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.printer.PrintStatus(statusView(a, a.store.Status(ctx)))
		},
	}
}

func clearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the fallback snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			a.store.Clear(ctx)
			if err := a.storageErr("clear"); err != nil {
				return err
			}
			a.printer.Success("Cleared key %q", a.store.Key())
			return nil
		},
	}
}

func snapshotView(d *fallback.Data, st fallback.Status) output.SnapshotView {
	return output.SnapshotView{
		CapturedAt: d.CapturedAt().UTC().Format(time.RFC3339),
		AgeMinutes: st.AgeMinutes,
		Fresh:      st.Fresh,
		Metadata:   d.Metadata,
		Records:    d.Records,
	}
}

func statusView(a *app, st fallback.Status) output.StatusView {
	return output.StatusView{
		Driver:     driverName(a.cfg),
		Key:        a.store.Key(),
		HasData:    st.HasData,
		Records:    st.Records,
		AgeMinutes: st.AgeMinutes,
		Fresh:      st.Fresh,
		Persistent: st.Persistent,
	}
}
