package main

import (
	"fmt"

	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the compute service is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := session.Client().Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("service unreachable: %w", err)
		}
		fmt.Println(colorstring.Color("[green]service up[reset] status=" + status))
		return nil
	},
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Ask the service to load its models ahead of the first job",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Client().Prepare(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(colorstring.Color("[green]service prepared"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(prepareCmd)
}
