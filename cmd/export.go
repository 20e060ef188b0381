/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mautops/maintcontrol/internal/service"
	"github.com/spf13/cobra"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all machines to a JSON or YAML file",
	Long: `Export every machine with its maintenance episodes, schedule and
history ledger. The output file defaults to maintcontrol_backup_<date>.<format>
in the current directory; use "-o -" to write to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, _ := cmd.Flags().GetString("format")
		format, err := service.ParseFormat(formatStr)
		if err != nil {
			return err
		}

		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		output, _ := cmd.Flags().GetString("output")
		if output == "-" {
			return ctr.TransferService().ExportTo(cmd.Context(), cmd.OutOrStdout(), format)
		}
		if output == "" {
			output = service.ExportFileName(ctr.Today(), format)
		}

		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		if err := ctr.TransferService().ExportTo(cmd.Context(), file, format); err != nil {
			file.Close()
			os.Remove(output)
			return err
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
		return nil
	},
}

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace all data with the contents of an export file",
	Long: `Import a file produced by "export" (or the REST export endpoint).
The whole file is validated first; when it is valid, all existing machines
and their records are replaced in a single transaction. The format is taken
from --format, or from the file extension when the flag is not set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		formatStr, _ := cmd.Flags().GetString("format")
		if formatStr == "" {
			formatStr = strings.TrimPrefix(filepath.Ext(path), ".")
		}
		format, err := service.ParseFormat(formatStr)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()

		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		result, err := ctr.TransferService().ImportFrom(cmd.Context(), file, format)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported %d machines, %d episodes, %d steps, %d schedules, %d history entries\n",
			result.Machines, result.Episodes, result.Steps, result.Schedules, result.History)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringP("format", "f", "json", "Export format: json or yaml")
	exportCmd.Flags().StringP("output", "o", "", "Output file, \"-\" for stdout")
	importCmd.Flags().StringP("format", "f", "", "Import format: json or yaml (default: from file extension)")
}
