package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vantazh/vantazh-go/cmd/broadcast"
	"github.com/vantazh/vantazh-go/cmd/serve"
	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/runtime"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, rtc *runtime.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "vantazh",
		Short:   "Vantazh dispatch service CLI",
		Version: rtc.Version,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		serve.Command(settings, rtc),
		broadcast.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().IntVar(&settings.Notify.Broadcast.Workers, "workers", viper.GetInt("notify.broadcast.workers"), "Concurrent recipients per broadcast")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
