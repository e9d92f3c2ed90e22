package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route [mls-number]",
	Short: "Show which team member receives a lead for a listing",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoute,
}

func runRoute(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	var mls string
	if len(args) == 1 {
		mls = args[0]
	}
	r := a.routing.Resolve(cmd.Context(), mls)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Email:       %s\n", r.AgentEmail)
	if r.AgentName != "" {
		fmt.Fprintf(out, "Agent:       %s\n", r.AgentName)
	}
	fmt.Fprintf(out, "Own listing: %t\n", r.IsOwnListing)
	return nil
}
