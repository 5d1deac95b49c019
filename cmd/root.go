package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	daemoncmd "github.com/tphakala/sentinel-go/cmd/daemon"
	setupcmd "github.com/tphakala/sentinel-go/cmd/setup"
	weathercmd "github.com/tphakala/sentinel-go/cmd/weather"
	"github.com/tphakala/sentinel-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Sentinel home security daemon",
		Long:  "Sentinel watches door, badge and environment sensors, raises the alarm on unauthorized entry and takes commands from the paired owner.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		daemoncmd.Command(settings),
		setupcmd.Command(settings),
		weathercmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
