package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/jsign/internal/models"
)

// ConnectAndMigrate opens the database described by dsn and brings the schema
// up to date. Postgres DSNs get a short retry loop (the container may come up
// after the app); anything else is treated as a sqlite path. With
// MIGRATIONS=1 the SQL files in ./migrations run via golang-migrate
// (postgres only); otherwise gorm AutoMigrate keeps dev setups working.
func ConnectAndMigrate(dsn string) (*gorm.DB, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty database DSN")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var conn *gorm.DB
	var err error
	if IsPostgres(dsn) {
		for i := 0; i < 10; i++ {
			conn, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Println("retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, fmt.Errorf("connect database after retries: %w", err)
		}
	} else {
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
		}
	}

	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	if enabled(os.Getenv("MIGRATIONS")) {
		if !IsPostgres(dsn) {
			return nil, fmt.Errorf("MIGRATIONS=1 requires a postgres DSN")
		}
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return nil, err
		}
	}

	for _, table := range []string{"users", "documents", "acknowledgments"} {
		if !conn.Migrator().HasTable(table) {
			return nil, fmt.Errorf("missing table after migration: %s", table)
		}
	}

	if enabled(os.Getenv("DB_SEED")) {
		if err := seedAdmin(conn); err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}
	return conn, nil
}

// AutoMigrate creates or updates the schema for all entities.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{&models.User{}, &models.Document{}, &models.Acknowledgment{}} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func enabled(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seedAdmin creates a bootstrap admin account if none exists. Credentials
// come from ADMIN_USERNAME / ADMIN_EMAIL / ADMIN_PASSWORD with dev defaults.
func seedAdmin(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	username := envDefault("ADMIN_USERNAME", "admin")
	email := envDefault("ADMIN_EMAIL", "admin@example.com")
	password := envDefault("ADMIN_PASSWORD", "admin")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.User{Username: username, Email: email, PasswordHash: string(hash), Role: models.RoleAdmin}
	if err := conn.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("seeded admin account %q", username)
	return nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// runSQLMigrations executes migrations in ./migrations using the golang-migrate file source.
func runSQLMigrations(dsn string) error {
	// golang-migrate only accepts URL-form database strings.
	dbURL, err := PostgresURL(dsn)
	if err != nil {
		return err
	}
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
