package main

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/tiancaiamao/celerograph"
)

// CSVEnv tells the benchmark command where to write its result table.
const CSVEnv = "CELERO_CSV"

type commit struct {
	date time.Time
	hash string
}

// parseGitLog parses "date_hash" lines, keeping the first (newest)
// commit of each day.
func parseGitLog(out string) ([]commit, error) {
	var (
		res      []commit
		lastDate string
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tmp := strings.SplitN(line, "_", 2)
		if len(tmp) != 2 {
			return nil, fmt.Errorf("git log: unexpected line %q", line)
		}
		date, githash := tmp[0], tmp[1]
		if date == lastDate {
			continue
		}
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("git log: %w", err)
		}
		res = append(res, commit{date: t, hash: githash})
		lastDate = date
	}
	return res, nil
}

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		command string
		dataDir string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Run the benchmark at one commit per day of git history",
		Long: `Walks git log of the current repository, checks out the newest commit
of every day and runs the benchmark command with ` + CSVEnv + ` set to
<data>/<date>_<commit>.csv. Days already present in the data directory
are skipped. Stops at the first failing run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			argv, err := shellquote.Split(command)
			if err != nil {
				return fmt.Errorf("exec: %w", err)
			}
			if len(argv) == 0 {
				return errors.New("exec: empty command")
			}
			dir, err := filepath.Abs(dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			var out bytes.Buffer
			c := execCommand("git", "log", fmt.Sprintf("-n%d", limit), "--date=short", "--pretty=format:%cd_%h")
			c.Stdout = &out
			if err := c.Run(); err != nil {
				return fmt.Errorf("git log: %w", err)
			}
			commits, err := parseGitLog(out.String())
			if err != nil {
				return err
			}

			for _, cm := range commits {
				csvPath := filepath.Join(dir, celerograph.DataFileName(cm.date, cm.hash))
				if _, err := os.Stat(csvPath); err == nil {
					log.Printf("skip %s, %s exists", cm.hash, csvPath)
					continue
				}

				checkout := execCommand("git", "checkout", "--quiet", cm.hash)
				checkout.Stderr = cmd.ErrOrStderr()
				if err := checkout.Run(); err != nil {
					return fmt.Errorf("checkout %s: %w", cm.hash, err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), "running command", command, "at", cm.hash)
				run := execCommand(argv[0], argv[1:]...)
				run.Env = append(os.Environ(), CSVEnv+"="+csvPath)
				run.Stdout = cmd.ErrOrStderr()
				run.Stderr = cmd.ErrOrStderr()
				if err := run.Run(); err != nil {
					return fmt.Errorf("run command at %s: %w", cm.hash, err)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&command, "exec", "", "benchmark command line")
	f.StringVar(&dataDir, "data", "data", "directory collecting the CSV files")
	f.IntVar(&limit, "limit", 1000, "number of git log entries to walk")
	cmd.MarkFlagRequired("exec")
	return cmd
}
