package main

import (
	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/pkg/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show and toggle asset sources",
	RunE:  runSourcesShow,
}

var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <source>",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], true)
	},
}

var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <source>",
	Short: "Disable a source without losing its album selections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSourceEnabled(cmd, args[0], false)
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesEnableCmd, sourcesDisableCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesShow(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, src := range source.Types() {
		enabled, err := a.store.SourceEnabled(src)
		if err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		configured := "not configured"
		if _, ok := a.connectors[src]; ok {
			configured = "configured"
		}
		cmd.Printf("%-15s %-10s %s\n", src, state, configured)
	}
	return nil
}

func setSourceEnabled(cmd *cobra.Command, name string, enabled bool) error {
	src, err := parseSource(name)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetSourceEnabled(src, enabled); err != nil {
		return err
	}
	if enabled {
		cmd.Printf("%s enabled\n", src)
	} else {
		cmd.Printf("%s disabled\n", src)
	}
	return nil
}
