package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"affection-tracker/internal/config"
	"affection-tracker/internal/service"
)

var (
	tokenHost    string
	tokenSession string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a host token for the HTTP API (uses JWT_SECRET and JWT_ISSUER)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.JWTTTL
		}
		svc := service.NewHostTokenService(cfg.JWTSecret, cfg.JWTIssuer, ttl, nil)
		tok, err := svc.Issue(tokenHost, tokenSession)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenHost, "host", "local-host", "host id (token subject)")
	tokenCmd.Flags().StringVar(&tokenSession, "session", "", "restrict the token to one session")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default from JWT_TTL)")
}
