package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairlens/fairlens-go/cmd/realtime"
	"github.com/fairlens/fairlens-go/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fairlens",
		Short: "FairLens streaming bias analysis engine",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(realtime.Command(settings))
	return rootCmd
}

// setupFlags defines the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
