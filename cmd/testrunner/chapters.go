package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var chaptersCmd = &cobra.Command{
	Use:   "chapters <assignment-id>",
	Short: "List course chapters and whether they are unlocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assignmentID, err := parseID(args[0])
		if err != nil {
			return err
		}
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.log.Sync()

		chapters, err := e.client.GetChapters(cmd.Context(), assignmentID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tORDER\tTYPE\tSTATUS\tTITLE")
		for _, ch := range chapters {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", ch.ID, ch.Order, ch.Type, ch.Status, ch.Title)
		}
		return w.Flush()
	},
}
