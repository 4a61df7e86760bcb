package safety

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Options mirrors the global safety flags.
type Options struct {
	DryRun bool
	Yes    bool
}

// Confirm prompts the user to confirm a destructive action.
// - If opts.Yes is true, it returns true without prompting.
// - If opts.DryRun is true, it returns false with no error (nothing should run).
func Confirm(opts Options, in io.Reader, out io.Writer, question string) (bool, error) {
	if opts.DryRun {
		return false, nil
	}
	if opts.Yes {
		return true, nil
	}
	if out != nil {
		fmt.Fprintf(out, "%s [y/N]: ", strings.TrimSpace(question))
	}
	line, err := readLine(in)
	if err != nil {
		return false, err
	}
	ans := strings.ToLower(line)
	return ans == "y" || ans == "yes", nil
}

// SelectIndex prompts for a 1-based selection and returns the chosen index.
// An empty answer or anything outside [1, max] is an error, not a guess.
func SelectIndex(in io.Reader, out io.Writer, prompt string, max int) (int, error) {
	if out != nil {
		fmt.Fprintf(out, "%s [1-%d]: ", strings.TrimSpace(prompt), max)
	}
	line, err := readLine(in)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("invalid selection %q", line)
	}
	return n, nil
}

// readLine reads one byte at a time so consecutive prompts sharing a reader
// never swallow each other's input.
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
