package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"confsync/src/backupid"
	"confsync/src/rollback"
	"confsync/src/safety"
)

func newRollbackCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [backup-name]",
		Short: "Restore an original location from a backup artifact",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			eng := &rollback.Engine{Registry: a.cfg.Registry(), Backups: a.backups, Exec: a.exec, Log: a.log}

			var name string
			if len(args) == 1 {
				name = args[0]
			} else {
				name, err = selectBackup(a, stdin, stdout)
				if err != nil {
					return err
				}
			}
			if a.opts.DryRun {
				return eng.Restore(name)
			}
			ok, err := safety.Confirm(a.opts.safety(), stdin, stdout, fmt.Sprintf("Restore from %s?", name))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return eng.Restore(name)
		},
	}
}

// selectBackup shows the backups newest first and asks for a choice.
func selectBackup(a *app, stdin io.Reader, stdout io.Writer) (string, error) {
	entries, err := a.backups.List()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no backups found under %s", a.backups.Root)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	for i, e := range entries {
		fmt.Fprintf(stdout, "%3d  %s\n", i+1, e.Name)
	}
	n, err := safety.SelectIndex(stdin, stdout, "Select a backup", len(entries))
	if err != nil {
		return "", err
	}
	return entries[n-1].Name, nil
}

func newRollbackConfigCmd(stdout, stderr io.Writer) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "rollback-config <name>",
		Short: "Restore the most recent backup of a named mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			var loc backupid.Location
			switch location {
			case "":
			case string(backupid.LocationSystem), string(backupid.LocationRepo):
				loc = backupid.Location(location)
			default:
				return fmt.Errorf("--location must be %q or %q", backupid.LocationSystem, backupid.LocationRepo)
			}
			eng := &rollback.Engine{Registry: a.cfg.Registry(), Backups: a.backups, Exec: a.exec, Log: a.log}
			return eng.RestoreLatest(args[0], loc)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Restrict to one side: system|repo (default: both)")
	return cmd
}
