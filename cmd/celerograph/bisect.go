package main

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/tiancaiamao/celerograph"
)

// git bisect run treats 125 as "cannot test this commit" and aborts the
// bisection on statuses above 127.
const (
	bisectSkip  exitCode = 125
	bisectAbort exitCode = 128
)

var execCommand = exec.Command

type bisectOptions struct {
	exec       string
	csv        string
	group      string
	experiment string
	feature    string
	valueRange string
}

func (a *app) newBisectCmd() *cobra.Command {
	var o bisectOptions
	cmd := &cobra.Command{
		Use:   "bisect",
		Short: "Classify a commit as good or bad for git bisect run",
		Long: `Runs the benchmark command, reads the CSV it writes and compares one
measurement with the low,high range: values closer to low are good (exit 0),
values closer to high are bad (exit 1). Commits where the measurement cannot
be obtained exit 125 so that git bisect skips them.

  git bisect run celerograph bisect --exec "./bench -t out.csv" --csv out.csv \
      --group Sort --experiment Merge --range 40,80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runBisect(cmd, o)
			var code exitCode
			if err != nil && !errors.As(err, &code) {
				// A usage error must stop git bisect, not mark the commit bad.
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return bisectAbort
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.exec, "exec", "", "benchmark command line")
	f.StringVar(&o.csv, "csv", "", "CSV file written by the benchmark command")
	f.StringVar(&o.group, "group", "", "benchmark group")
	f.StringVar(&o.experiment, "experiment", "", "experiment within the group")
	f.StringVar(&o.feature, "feature", celerograph.MeanTime.String(), "measurement to compare")
	f.StringVar(&o.valueRange, "range", "", "good and bad values, as low,high")
	for _, name := range []string{"exec", "csv", "group", "experiment", "range"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runBisect(cmd *cobra.Command, o bisectOptions) error {
	from, to, err := parseNumberPair(o.valueRange)
	if err != nil {
		return err
	}
	if from >= to {
		return fmt.Errorf("range: low %g >= high %g", from, to)
	}
	feature, err := celerograph.ParseFeature(o.feature)
	if err != nil {
		return err
	}
	argv, err := shellquote.Split(o.exec)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if len(argv) == 0 {
		return errors.New("exec: empty command")
	}

	c := execCommand(argv[0], argv[1:]...)
	c.Stdout = cmd.ErrOrStderr()
	c.Stderr = cmd.ErrOrStderr()
	if err := c.Run(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "benchmark failed:", err)
		return bisectSkip
	}

	val, err := lookupValue(o.csv, o.group, o.experiment, feature)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return bisectSkip
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s/%s %v: %g\n", o.group, o.experiment, feature, val)
	if ret := goodOrBad(val, from, to); ret != 0 {
		return exitCode(ret)
	}
	return nil
}

// lookupValue returns feature of the first row of group and experiment.
func lookupValue(csvPath, group, experiment string, feature celerograph.Feature) (float64, error) {
	files := &celerograph.Files{Paths: []string{csvPath}}
	defer files.Close()
	for files.Scan() {
		r := files.Record()
		if r.Group == group && r.Experiment == experiment {
			return r.Value(feature), nil
		}
	}
	if err := files.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%s: no result for %s/%s", csvPath, group, experiment)
}

func parseNumberPair(str string) (float64, float64, error) {
	tmp := strings.Split(str, ",")
	if len(tmp) != 2 {
		return 0, 0, fmt.Errorf("range %q: want low,high", str)
	}
	from, err := strconv.ParseFloat(strings.TrimSpace(tmp[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", str, err)
	}
	to, err := strconv.ParseFloat(strings.TrimSpace(tmp[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", str, err)
	}
	return from, to, nil
}

// Return 1 if the current source is bad (val near to to)
// Return 0 for a good case (val near to from)
func goodOrBad(val, from, to float64) int {
	if val > to {
		return 1
	}
	if val < from {
		return 0
	}

	if val > (from+to)/2 {
		return 1
	}
	return 0
}
