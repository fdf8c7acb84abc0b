package main

import (
	"fmt"
	"strings"

	"recipe-agents/internal/core/prompt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newPromptsCommand() *cobra.Command {
	var overridePath string

	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect the prompt catalogue",
	}
	promptsCmd.PersistentFlags().StringVar(&overridePath, "override", "", "YAML file overriding built-in templates")

	promptsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates and their placeholders",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogue, err := prompt.LoadCatalogue(overridePath)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Template", "Placeholders", "Description"})
			for _, name := range catalogue.Names() {
				tmpl, err := catalogue.Get(name)
				if err != nil {
					return err
				}
				tw.AppendRow(table.Row{name, strings.Join(tmpl.Placeholders(), ", "), catalogue.Description(name)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return nil
		},
	})

	return promptsCmd
}
