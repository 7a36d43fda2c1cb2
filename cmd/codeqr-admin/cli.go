package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/config"
	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/logging"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
)

type orderExporter interface {
	All(ctx context.Context, f order.Filter) ([]order.Order, error)
}

type userExporter interface {
	All(ctx context.Context, f user.Filter) ([]user.User, error)
}

type qrCodeAdmin interface {
	All(ctx context.Context, f qrcode.Filter) ([]qrcode.QRCode, error)
	Generate(ctx context.Context, count int, orderID string) ([]qrcode.QRCode, error)
}

type stockAdmin interface {
	SetAvailable(ctx context.Context, productID string, available int) error
	List(ctx context.Context) ([]inventory.StockItem, error)
}

// services is what the subcommands work against.
type services struct {
	orders  orderExporter
	users   userExporter
	qrcodes qrCodeAdmin
	stock   stockAdmin
	close   func()
}

type cli struct {
	out     io.Writer
	timeout time.Duration
	open    func(ctx context.Context) (*services, error)
	migrate func() error
}

func newCLI() *cli {
	return &cli{
		out:     os.Stdout,
		timeout: 2 * time.Minute,
		open:    openServices,
		migrate: func() error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return db.RunMigrations(cfg.DatabaseDSN, logger)
		},
	}
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func openServices(ctx context.Context) (*services, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		pool.Close()
		return nil, err
	}

	outbox := events.NewOutbox(pool)
	stockRepo := inventory.NewPostgresRepository(pool)
	userRepo := user.NewPostgresRepository(pool, 0)

	return &services{
		orders: order.NewService(pool, order.NewRepository(pool), stockRepo, cat, outbox, logger, nil),
		users:  user.NewService(userRepo, pool, cfg.MinPasswordLength),
		qrcodes: qrcode.NewService(pool, qrcode.NewPostgresRepository(pool), userRepo, outbox, logger, nil, qrcode.Config{
			ActivationURL:     cfg.ActivationURL,
			MinPasswordLength: cfg.MinPasswordLength,
		}),
		stock: inventory.NewService(stockRepo, cat),
		close: pool.Close,
	}, nil
}

// withServices opens the services for the duration of fn.
func (c *cli) withServices(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	s, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if s.close != nil {
		defer s.close()
	}
	return fn(ctx, s)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "codeqr-admin",
		Short: "Operator tasks for the CodeQR storefront",
		Long: `codeqr-admin runs maintenance tasks against the storefront database.

Configuration comes from the same environment variables as the server
(DATABASE_DSN, CATALOG_PATH, CODEQR_CONFIG, ...).`,
		SilenceUsage: true,
	}
	root.SetOut(c.out)

	root.AddCommand(
		newMigrateCmd(c),
		newExportCmd(c),
		newQRCodesCmd(c),
		newStockCmd(c),
	)
	return root
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
