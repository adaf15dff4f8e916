package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-lms-payments/app/auth"
)

var adminSubject string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Operator helpers",
}

var adminTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a short-lived admin bearer token for the manual confirmation routes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		subject := strings.TrimSpace(adminSubject)
		if subject == "" {
			return errors.New("--subject is required")
		}

		cfg := mustLoadConfig()
		tokens := auth.NewAdminTokens(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, cfg.App.ServiceName)
		token, err := tokens.Issue(subject, time.Now())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminTokenCmd)
	adminTokenCmd.Flags().StringVar(&adminSubject, "subject", "", "Operator reference recorded as the confirming admin")
}
