package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recipe-agents/internal/core/sanitize"
	"recipe-agents/internal/core/table"
	"recipe-agents/internal/infrastructure/config"
	"recipe-agents/internal/infrastructure/tablestore"
	"recipe-agents/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newTableCommand() *cobra.Command {
	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Parse, render and publish source tables",
	}

	tableCmd.AddCommand(newTableParseCommand())
	tableCmd.AddCommand(newTableHTMLCommand())
	tableCmd.AddCommand(newTablePushCommand())

	return tableCmd
}

func newTableParseCommand() *cobra.Command {
	var asText bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a markdown table and print its rows and skipped lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			t := table.Parse(string(raw))
			out := cmd.OutOrStdout()
			if asText {
				fmt.Fprintln(out, table.Format(t))
				for _, d := range t.Diagnostics {
					fmt.Fprintf(out, "skipped line %d: %s\n", d.Line, d.Reason)
				}
			} else {
				encoded, err := common.ToJSON(t)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, encoded)
			}
			return t.Defect()
		},
	}

	cmd.Flags().BoolVar(&asText, "text", false, "Print the normalized table instead of JSON")
	return cmd
}

func newTableHTMLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "html <file>",
		Short: "Render generated markdown with its tables converted to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sanitize.ForDisplay(string(raw)))
			return nil
		},
	}
}

func newTablePushCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Store a table file in redis under the configured key prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if t := table.Parse(string(raw)); t.Defect() != nil {
				return fmt.Errorf("refusing to push %s: %w", args[0], t.Defect())
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			redisCfg, err := config.LoadRedisConfig()
			if err != nil {
				return err
			}
			store, err := tablestore.NewRedisStore(cmd.Context(), *redisCfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Put(cmd.Context(), name, string(raw)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pushed %s (%d bytes) to %s%s\n", name, len(raw), redisCfg.KeyPrefix, name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Table name (defaults to the file name without extension)")
	return cmd
}
