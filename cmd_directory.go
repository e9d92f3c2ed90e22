package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"listing_engine/config"
	"listing_engine/storage"
)

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Manage the team member directory",
}

var directoryImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Upsert team members from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDirectoryImport,
}

var directoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List team members",
	RunE:  runDirectoryList,
}

func init() {
	directoryCmd.AddCommand(directoryImportCmd)
	directoryCmd.AddCommand(directoryListCmd)
}

// openDirectory opens only the SQLite directory; these commands need no
// upstream sources.
func openDirectory() (*storage.DirectoryStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return storage.NewDirectoryStore(cfg.Directory.DBPath)
}

func runDirectoryImport(cmd *cobra.Command, args []string) error {
	dir, err := openDirectory()
	if err != nil {
		return err
	}
	defer dir.Close()

	n, err := dir.ImportFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d team members from %s\n", n, args[0])
	return nil
}

func runDirectoryList(cmd *cobra.Command, _ []string) error {
	dir, err := openDirectory()
	if err != nil {
		return err
	}
	defer dir.Close()

	members, err := dir.TeamMembers(cmd.Context())
	if err != nil {
		return err
	}
	last, err := dir.LastImport(cmd.Context())
	if err != nil {
		return err
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Name", "Email", "MLS ID", "Sold MLS ID"})
	for _, m := range members {
		w.AppendRow(table.Row{m.Name, m.Email, m.MLSID, m.SoldMLSID})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, w.Render())
	if !last.IsZero() {
		fmt.Fprintf(out, "Last import: %s\n", last.Format("2006-01-02 15:04:05"))
	}
	return nil
}
