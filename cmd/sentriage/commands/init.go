package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
			}
			if err := config.Defaults().Save(cfgFile); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", cfgFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
