package main

import (
	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/config"
	"github.com/driftwall/driftwall/util"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.Printf("%s %s\n", config.AppName, config.AppVersion)
		if !versionCheck {
			return nil
		}
		result, err := util.CheckForUpdates(cmd.Context())
		if err != nil {
			return err
		}
		if result.UpdateAvailable {
			cmd.Printf("update available: %s (%s)\n", result.LatestVersion, result.ReleaseURL)
		} else {
			cmd.Println("up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}
