package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/pkg/source/lightroom"
)

var (
	authAccessToken  string
	authRefreshToken string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Lightroom credentials",
}

var authSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store Lightroom OAuth tokens in the OS keyring",
	Long: `Store Lightroom OAuth tokens in the OS keyring.

Driftwall does not run the interactive sign-in flow itself; obtain tokens
from the Adobe IMS flow of your choice and hand them over here.`,
	RunE: runAuthSetToken,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether Lightroom credentials are stored",
	RunE:  runAuthStatus,
}

func init() {
	authSetTokenCmd.Flags().StringVar(&authAccessToken, "access", "", "access token")
	authSetTokenCmd.Flags().StringVar(&authRefreshToken, "refresh", "", "refresh token")
	authCmd.AddCommand(authSetTokenCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthSetToken(cmd *cobra.Command, _ []string) error {
	if authAccessToken == "" {
		return fmt.Errorf("--access is required")
	}
	tokens, err := lightroom.NewKeyringTokens()
	if err != nil {
		return err
	}
	if err := tokens.SetTokens(authAccessToken, authRefreshToken); err != nil {
		return err
	}
	cmd.Println("tokens stored")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	tokens, err := lightroom.NewKeyringTokens()
	if err != nil {
		return err
	}
	access, err := tokens.AccessToken()
	if err != nil {
		return err
	}
	refresh, err := tokens.RefreshToken()
	if err != nil {
		return err
	}
	report := func(name, value string) {
		if value == "" {
			cmd.Printf("%s: not stored\n", name)
		} else {
			cmd.Printf("%s: stored\n", name)
		}
	}
	report("access token", access)
	report("refresh token", refresh)
	return nil
}
