package main

import (
	"fmt"
	"log"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tiancaiamao/celerograph"
)

func (a *app) newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep benchmark results in a MySQL or SQLite database",
	}

	var label string
	add := &cobra.Command{
		Use:   "add <csv file or directory>",
		Short: "Store the records of the input as one upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := celerograph.SourcePaths(args[0])
			if err != nil {
				return err
			}
			// Parse everything first so that a malformed file stores nothing.
			if _, err := celerograph.Collect(&celerograph.Files{Paths: paths}); err != nil {
				return err
			}

			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if label == "" {
				label = filepath.Base(args[0])
			}
			u, err := db.NewUpload(cmd.Context(), label)
			if err != nil {
				return err
			}
			n, err := u.InsertAll(cmd.Context(), &celerograph.Files{Paths: paths})
			if err != nil {
				return err
			}
			log.Printf("stored %d records from %d files", n, len(paths))
			fmt.Fprintf(cmd.OutOrStdout(), "upload %d: %d records\n", u.ID, n)
			return nil
		},
	}
	add.Flags().StringVar(&label, "label", "", "upload label (default is the input base name)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			uploads, err := db.ListUploads(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tCREATED\tRECORDS")
			for _, u := range uploads {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", u.ID, u.Label, u.Created, u.Records)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
