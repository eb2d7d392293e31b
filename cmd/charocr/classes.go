package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"charocr/internal/classes"
	"charocr/internal/ocr"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the built-in character classes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, g := range classes.BuiltinGroups() {
			fmt.Fprintf(w, "%s\n", g.Name)
			for _, c := range g.Classes {
				fmt.Fprintf(w, "  %s\t%s\n", c.Repr, c.Folder)
			}
		}
		return w.Flush()
	},
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the model identity and path of the selected classes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := selectedClasses()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ocr.ModelIdentity(set, cfg.Type()))
		fmt.Fprintln(cmd.OutOrStdout(), ocr.ModelPath(cfg.ModelsFolder, set, cfg.Type()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classesCmd, identityCmd)
}
