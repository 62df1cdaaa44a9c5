package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tiancaiamao/celerograph"
	"github.com/tiancaiamao/celerograph/store"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	upload  int64
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:   "celerograph <csv file or directory>",
		Short: "Render Celero benchmark results as HTML bar charts",
		Long: `celerograph reads Celero CSV result tables and writes one HTML report
per benchmark group, each with six bar charts (baseline, mean, min, max,
us/iteration and iterations/sec), plus an index page linking them.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.initConfig()
		},
		RunE: a.runReport,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./celerograph.yaml)")
	pf.BoolP("verbose", "v", false, "log progress to stderr")
	pf.StringP("output-dir", "o", "", "directory for generated documents (default is the working directory)")
	pf.String("prefix", celerograph.DefaultPrefix, "file name prefix of group reports")
	pf.String("index", celerograph.DefaultIndex, "file name of the index document")
	pf.String("db-driver", store.SQLite, "result store driver: mysql or sqlite")
	pf.String("db-dsn", "", "result store data source name")
	bindFlags(a.v, pf, map[string]string{
		"verbose":    "verbose",
		"output_dir": "output-dir",
		"prefix":     "prefix",
		"index":      "index",
		"db.driver":  "db-driver",
		"db.dsn":     "db-dsn",
	})

	cmd.Flags().Int64Var(&a.upload, "upload", 0, "render a stored upload instead of CSV input")

	cmd.AddCommand(
		a.newReportCmd(),
		a.newJSONCmd(),
		a.newStoreCmd(),
		a.newServeCmd(),
		a.newBisectCmd(),
		a.newHistoryCmd(),
	)
	return cmd
}

// bindFlags binds config keys to the named flags of fs.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		v.BindPFlag(key, fs.Lookup(name))
	}
}

// initConfig reads .env, the config file and CELEROGRAPH_* variables.
func (a *app) initConfig() error {
	_ = godotenv.Load()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("celerograph")
	}
	a.v.SetEnvPrefix("CELEROGRAPH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	a.v.SetDefault("serve.addr", ":18081")
	a.v.SetDefault("serve.data", "data")

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log.SetFlags(0)
	if a.v.GetBool("verbose") {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	return nil
}

func (a *app) reportOptions() celerograph.ReportOptions {
	return celerograph.ReportOptions{
		Prefix: a.v.GetString("prefix"),
		Index:  a.v.GetString("index"),
	}
}

func (a *app) openStore() (*store.DB, error) {
	dsn := a.v.GetString("db.dsn")
	if dsn == "" {
		return nil, errors.New("no result store configured (set --db-dsn or CELEROGRAPH_DB_DSN)")
	}
	return store.OpenSQL(a.v.GetString("db.driver"), dsn)
}

// loadAggregate reads the aggregate from the stored upload, if one was
// requested, or from the CSV input named by args.
func (a *app) loadAggregate(ctx context.Context, args []string) (*celerograph.Aggregate, error) {
	if a.upload > 0 {
		if len(args) > 0 {
			return nil, errors.New("--upload and an input path are exclusive")
		}
		db, err := a.openStore()
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.LoadUpload(ctx, a.upload)
	}
	if len(args) != 1 {
		return nil, errors.New("expected one CSV file or directory")
	}
	log.Printf("reading %s", args[0])
	return celerograph.LoadPath(args[0])
}

func (a *app) runReport(cmd *cobra.Command, args []string) error {
	agg, err := a.loadAggregate(cmd.Context(), args)
	if err != nil {
		return err
	}
	names, err := celerograph.Generate(agg, a.v.GetString("output_dir"), a.reportOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d reports, index %s\n", len(names)-1, names[len(names)-1])
	return nil
}

func (a *app) newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <csv file or directory>",
		Short: "Render reports (same as running celerograph with a path)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runReport,
	}
	cmd.Flags().Int64Var(&a.upload, "upload", 0, "render a stored upload instead of CSV input")
	return cmd
}
