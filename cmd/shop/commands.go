package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/publisher"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/Faraj-M/E-Commerce-Platform/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate the database all the way up",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			fmt.Println("Migrated up")
			return nil
		},
	}
	cmd.Flags().String("db-driver", "sqlite", "database driver (postgres|sqlite)")
	return cmd
}

func relayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "publish outbox events to kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is not set")
			}
			log := logger.New(cfg.LogLevel)

			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			poller := publisher.NewOutboxPoller(repo, cfg.Kafka.Topic, cfg.Kafka.PollInterval, log, cfg.Kafka.Brokers...)
			defer poller.Close()

			log.WithField("topic", cfg.Kafka.Topic).Info("outbox relay started")
			poller.Run(ctx)
			log.Info("outbox relay stopped")
			return nil
		},
	}
	cmd.Flags().String("db-driver", "sqlite", "database driver (postgres|sqlite)")
	return cmd
}

type seedProduct struct {
	name  string
	price string
	stock int
}

var seedCatalog = map[string][]seedProduct{
	"Books": {
		{"The Go Programming Language", "39.99", 25},
		{"Designing Data-Intensive Applications", "45.50", 10},
	},
	"Kitchen": {
		{"Enamel Mug", "12.00", 100},
		{"Pour Over Kettle", "58.00", 3},
	},
}

func seedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "insert a small demo catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			repo, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			return seed(cmd.Context(), repo)
		},
	}
	cmd.Flags().String("db-driver", "sqlite", "database driver (postgres|sqlite)")
	return cmd
}

func seed(ctx context.Context, repo *repository.Repository) error {
	for categoryName, products := range seedCatalog {
		category := &domain.Category{Name: categoryName, Slug: slug(categoryName)}
		if err := repo.CreateCategory(ctx, category); err != nil {
			return err
		}
		for _, sp := range products {
			p := &domain.Product{
				CategoryID:    category.ID,
				Name:          sp.name,
				Slug:          slug(sp.name),
				Price:         decimal.RequireFromString(sp.price),
				StockQuantity: sp.stock,
				IsActive:      true,
			}
			if err := repo.CreateProduct(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Created product %d %s\n", p.ID, p.Slug)
		}
	}
	return nil
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		case !dash && len(out) > 0:
			out = append(out, '-')
			dash = true
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	return string(out)
}
