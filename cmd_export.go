package main

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"listing_engine/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the open-house and featured feeds to object storage once",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.exporter.Export(cmd.Context()); err != nil {
		return err
	}
	if a.cfg.S3.Bucket != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Open houses: %s\n", storage.PublicURL(a.cfg.S3, path.Join(a.cfg.Export.Prefix, "open-houses.json")))
	}
	return nil
}
