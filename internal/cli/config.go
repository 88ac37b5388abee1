package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colthorp/esios-cli-go/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Read a value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			val, err := config.Get(key)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", key)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, maskSecret(key, fmt.Sprintf("%v", val)))
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Write a value into the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, maskSecret(key, value))
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.Path())
			return nil
		},
	}

	configCmd.AddCommand(getCmd, setCmd, pathCmd)
	rootCmd.AddCommand(configCmd)
}

func maskSecret(key, value string) string {
	if strings.Contains(strings.ToLower(key), "token") {
		return "***"
	}
	return value
}
