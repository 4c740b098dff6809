package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/config"
	"github.com/pioneer-isp/helpdesk/internal/domain"
	"github.com/pioneer-isp/helpdesk/internal/observability"
	"github.com/pioneer-isp/helpdesk/internal/persistence"
	"github.com/pioneer-isp/helpdesk/internal/repository"
	"github.com/pioneer-isp/helpdesk/internal/service"
	"github.com/pioneer-isp/helpdesk/internal/sla"
)

const commandTimeout = 30 * time.Second

// env is the configuration and database handle shared by commands that touch storage.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	pg, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg == nil {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	return &env{cfg: cfg, logger: logger, pg: pg}, nil
}

func (e *env) close() {
	e.pg.Close()
	_ = e.logger.Sync()
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.pg.Migrate(ctx, e.cfg.Postgres.MigrationsDir, e.logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newCreateStaffCommand() *cobra.Command {
	var input service.CreateStaffInput
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			staff := service.NewStaffService(service.StaffDependencies{
				Store:      repository.NewPostgresStore(e.pg.Pool()),
				BcryptCost: e.cfg.Auth.BcryptCost,
				AdminGroup: e.cfg.Access.AdminGroup,
				Logger:     e.logger,
			})
			created, err := staff.BootstrapStaff(ctx, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) in group %s\n", created.Username, created.ID, created.Group)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "login name")
	cmd.Flags().StringVar(&input.DisplayName, "display-name", "", "name shown in the UI")
	cmd.Flags().StringVar(&input.Group, "group", domain.GroupSupport, "staff group")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for seeding staff rows by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 12, "bcrypt cost")
	return cmd
}

func newSLADueCommand() *cobra.Command {
	var (
		policyFile string
		createdAt  string
	)
	cmd := &cobra.Command{
		Use:   "sla-due <priority>",
		Short: "Print the SLA deadline for a priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := sla.LoadPolicyFile(policyFile)
			if err != nil {
				return err
			}
			created := time.Now().UTC()
			if createdAt != "" {
				created, err = time.Parse(time.RFC3339, createdAt)
				if err != nil {
					return fmt.Errorf("parse --created-at: %w", err)
				}
			}
			due, err := policy.Due(domain.TicketPriority(args[0]), created)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", due.Format(time.RFC3339), sla.StandingAt(time.Now(), due).Label)
			return nil
		},
	}
	cmd.Flags().StringVar(&policyFile, "policy", "", "YAML policy file; defaults to the built-in table")
	cmd.Flags().StringVar(&createdAt, "created-at", "", "creation time in RFC3339; defaults to now")
	return cmd
}
