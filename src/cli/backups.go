package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"confsync/src/backup"
	"confsync/src/backupid"
)

func newListBackupsCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list-backups",
		Short: "List backup artifacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			entries, err := a.backups.List()
			if err != nil {
				return err
			}
			// List returns oldest first; display newest first.
			for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
				entries[i], entries[j] = entries[j], entries[i]
			}
			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			case "table", "":
				return renderBackupTable(stdout, entries)
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func renderBackupTable(w io.Writer, entries []backup.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONFIG\tLOCATION\tTYPE\tMODIFIED")
	for _, e := range entries {
		cfgName, loc := "-", "-"
		if id, err := backupid.Parse(e.Name); err == nil {
			cfgName, loc = id.Config, string(id.Loc)
		}
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, cfgName, loc, kind, e.ModTime.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func newStatsCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup-stats",
		Short: "Show backup count and total size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			stats := a.backups.CollectStats()
			if output == "json" {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			fmt.Fprintf(stdout, "Backups: %d\n", stats.Count)
			fmt.Fprintf(stdout, "Total size: %s\n", humanize.Bytes(uint64(stats.TotalBytes)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func newCleanupCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backup-cleanup",
		Short: "Remove backups beyond the retention limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			removed, err := a.backups.Cleanup()
			if err != nil {
				return err
			}
			verb := "removed"
			if a.opts.DryRun {
				verb = "would remove"
			}
			for _, path := range removed {
				fmt.Fprintf(stdout, "%s %s\n", verb, path)
			}
			fmt.Fprintf(stdout, "%s %d backup(s)\n", verb, len(removed))
			return nil
		},
	}
}
