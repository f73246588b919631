package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dtroode/accounts-server/internal/config"
	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/repository/memory"
	"github.com/dtroode/accounts-server/internal/repository/postgres"
	"github.com/dtroode/accounts-server/internal/service"
	"github.com/dtroode/accounts-server/internal/sms"
)

type createAdminOptions struct {
	phone    string
	username string
	password string
	email    string
}

// NewCreateAdminCmd creates a staff superuser account.
func NewCreateAdminCmd() *cobra.Command {
	var opts createAdminOptions

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff superuser account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.phone, "phone", "", "mobile phone number")
	cmd.Flags().StringVar(&opts.username, "username", "", "username")
	cmd.Flags().StringVar(&opts.password, "password", "", "password")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address (optional)")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts createAdminOptions) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := postgres.NewConnection(cmd.Context(), cfg.Database.DSN, cfg.Database.ConnectRetries)
	if err != nil {
		return err
	}
	defer db.Close()

	// only the account store and password checks take part in registration
	accounts := service.NewAccount(
		postgres.NewAccountRepository(db, cfg.Database.QueryTimeout),
		memory.NewCodeStore(),
		sms.NewLogGateway(log),
		newHasher(cfg),
		newPolicy(cfg),
		nil,
		nil,
		service.Limits{},
		service.AccountOptions{},
		log,
	)

	params := model.RegisterParams{
		Phone:           opts.phone,
		Username:        opts.username,
		Password:        opts.password,
		PasswordConfirm: opts.password,
	}
	if opts.email != "" {
		params.Email = &opts.email
	}

	account, err := accounts.CreateAdmin(cmd.Context(), params)
	if err != nil {
		var domainErr *model.Error
		if errors.As(err, &domainErr) && domainErr.Field != "" {
			return errors.New(domainErr.Field + ": " + domainErr.Message)
		}
		return err
	}

	cmd.Printf("created admin account %s (%s)\n", account.ID, account.Username)
	return nil
}
