package main

import (
	"fmt"
	"os"

	"github.com/Faraj-M/E-Commerce-Platform/internal/config"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "shop",
		Short:         "cart, checkout and payment backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		serveCommand(),
		migrateCommand(),
		relayCommand(),
		seedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("http-port") {
		cfg.HTTPPort, _ = cmd.Flags().GetString("http-port")
	}
	if cmd.Flags().Changed("db-driver") {
		cfg.Database.Driver, _ = cmd.Flags().GetString("db-driver")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Driver:            cfg.Database.Driver,
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		DBName:            cfg.Database.Name,
		SQLitePath:        cfg.Database.SQLitePath,
		MigrationsDirPath: cfg.Database.MigrationsPath,
	}
}

// openRepository connects and brings the schema up to date.
func openRepository(cfg *config.Config) (*repository.Repository, error) {
	cred := credentials(cfg)
	repo, err := repository.NewRepository(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.RunMigrations(cred); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}
