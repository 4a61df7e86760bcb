package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command for the confsync CLI.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "confsync",
		Short:         "Keep configuration files synchronized between the system and a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newPullCmd(stdout, stderr))
	cmd.AddCommand(newPushCmd(stdout, stderr))
	cmd.AddCommand(newListBackupsCmd(stdout, stderr))
	cmd.AddCommand(newStatsCmd(stdout, stderr))
	cmd.AddCommand(newCleanupCmd(stdout, stderr))
	cmd.AddCommand(newRollbackCmd(stdin, stdout, stderr))
	cmd.AddCommand(newRollbackConfigCmd(stdout, stderr))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// Execute runs the CLI with the process stdio and returns the exit code.
func Execute() int {
	root := NewRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
