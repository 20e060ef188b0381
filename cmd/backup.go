/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage compressed data snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a backup in the configured backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		path, err := ctr.BackupService().CreateBackup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup created: %s\n", path)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		backups, err := ctr.BackupService().ListBackups(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILENAME\tSIZE\tCREATED")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Filename, b.Size, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore FILENAME",
	Short: "Replace all data with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		result, err := ctr.BackupService().RestoreBackup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restored %d machines from %s\n", result.Machines, args[0])
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete FILENAME",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctr, err := openContainer(cmd)
		if err != nil {
			return err
		}
		defer ctr.Close()

		if err := ctr.BackupService().DeleteBackup(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd, backupDeleteCmd)
}
