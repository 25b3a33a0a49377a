package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/adminapi"
	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/auth"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/shopapi"
	"github.com/bjo163/storefront/internal/webserver"
)

var (
	BuildVersion = "latest"
	BuildTime    = ""
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Electronics storefront API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config yaml file")

	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Create or update the database schema", RunE: runMigrate},
		&cobra.Command{Use: "initdb", Short: "Drop all tables and recreate them with seed data", RunE: runInitDB},
		grantRoleCmd(),
		tokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(*cobra.Command, []string) {
				fmt.Printf("storefront %s %s\n", BuildVersion, BuildTime)
			},
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadApp() (*app.Application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	a := app.NewApplication(cfg)
	a.Init(cfg)
	return a, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Release()

	shopapi.Init()
	adminapi.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := webserver.NewServer(a).Start(ctx); err != nil {
		zap.S().Errorf("web server stopped: %v", err)
		return err
	}
	return nil
}

func runMigrate(*cobra.Command, []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Release()
	return a.MigrateDB(true)
}

func runInitDB(*cobra.Command, []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Release()
	a.InitDb()
	return nil
}

func grantRoleCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "grant-role USER_ID ROLE",
		Short: "Grant (or with --revoke remove) a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Release()
			role := domain.Role(args[1])
			if revoke {
				return a.Gate().Revoke(context.Background(), args[0], role)
			}
			return a.Gate().Grant(context.Background(), args[0], role)
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "remove the role instead")
	return cmd
}

// tokenCmd signs a bearer token with the configured secret for local testing
func tokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Issue a bearer token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
			}
			token, err := auth.IssueToken(cfg.Auth.JwtSecret, args[0], email, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to auth.token_ttl_hours)")
	return cmd
}
