package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"confsync/src/syncer"
)

func newPullCmd(stdout, stderr io.Writer) *cobra.Command {
	return newSyncCmd("pull", "Copy system-side configuration into the repository", syncer.DirectionPull, stdout, stderr)
}

func newPushCmd(stdout, stderr io.Writer) *cobra.Command {
	return newSyncCmd("push", "Copy repository configuration onto the system", syncer.DirectionPush, stdout, stderr)
}

func newSyncCmd(use, short string, dir syncer.Direction, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, stderr)
			if err != nil {
				return err
			}
			reg, err := a.validatedRegistry()
			if err != nil {
				return err
			}
			engine := &syncer.Engine{Backups: a.backups, Exec: a.exec, Log: a.log}
			sum := engine.Run(reg, dir)
			fmt.Fprintf(stdout, "%s: %d/%d mappings synced (%d skipped, %d failed)\n",
				use, sum.Succeeded(), sum.Total(), sum.Skipped(), sum.Failed())
			if a.opts.DryRun || sum.OK() {
				return nil
			}
			return fmt.Errorf("%d of %d mappings did not sync", sum.Total()-sum.Succeeded(), sum.Total())
		},
	}
}
