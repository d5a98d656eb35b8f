// Package repotest provides a migrated sqlite repository and seed helpers
// for tests in other packages.
package repotest

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// MigrationsDir is the absolute path of the repository migrations.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "migrations")
}

// NewSQLite opens a fresh migrated database in a temp dir. It is closed
// when the test ends.
func NewSQLite(t testing.TB) *repository.Repository {
	t.Helper()

	creds := &repository.Credentials{
		Driver:            repository.DriverSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "shop.db"),
		MigrationsDirPath: MigrationsDir(),
	}

	repo, err := repository.NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))

	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func SeedCategory(t testing.TB, repo *repository.Repository, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{Name: name, Slug: slugify(name)}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

// SeedProduct inserts an active product priced at price.
func SeedProduct(t testing.TB, repo *repository.Repository, categoryID int64, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		CategoryID:    categoryID,
		Name:          name,
		Slug:          slugify(name),
		Description:   name + " description",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
