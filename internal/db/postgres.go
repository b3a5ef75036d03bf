package db

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/logger"
	"github.com/Kjdragan/codescribe/internal/models"
)

const customersDDL = `CREATE TABLE IF NOT EXISTS customers (
    id SERIAL PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    full_name TEXT NOT NULL,
    bio TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`

// SampleCustomers are inserted by Seed when the table is empty.
var SampleCustomers = []models.Customer{
	{Email: "johndoe@gmail.com", FullName: "John Doe", Bio: "I am a software engineer"},
	{Email: "janedoe@gmail.com", FullName: "Jane Doe", Bio: "I am a data scientist"},
	{Email: "jimdoe@gmail.com", FullName: "Jim Doe", Bio: "I am a product manager"},
}

// Options returns the gorm settings shared by the real connection and tests.
// TranslateError makes unique violations surface as gorm.ErrDuplicatedKey.
func Options(debug bool) *gorm.Config {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	}
}

// Open connects to Postgres. The returned handle is kept for the process
// lifetime.
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DSN()), Options(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database at %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	log := logger.Component("db")
	log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Name).Msg("database connected")
	return conn, nil
}

// SetupSchema creates the customers table if it does not exist. Safe to call
// repeatedly.
func SetupSchema(ctx context.Context, conn *gorm.DB) error {
	log := logger.Component("db")

	var err error
	if conn.Dialector.Name() == "postgres" {
		err = conn.WithContext(ctx).Exec(customersDDL).Error
	} else {
		err = conn.WithContext(ctx).AutoMigrate(&models.Customer{})
	}
	if err != nil {
		log.Error().Err(err).Msg("error setting up database schema")
		return fmt.Errorf("setup schema: %w", err)
	}

	log.Info().Msg("database schema setup completed")
	return nil
}

// Seed inserts SampleCustomers in one batch when the table is empty and
// returns how many rows it inserted. A non-empty table is left alone.
func Seed(ctx context.Context, conn *gorm.DB) (int, error) {
	log := logger.Component("db")

	var count int64
	if err := conn.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error; err != nil {
		log.Error().Err(err).Msg("error seeding database")
		return 0, fmt.Errorf("count customers: %w", err)
	}

	if count > 0 {
		log.Info().Int64("rows", count).Msg("database already contains data, skipping seed")
		return 0, nil
	}

	rows := make([]models.Customer, len(SampleCustomers))
	copy(rows, SampleCustomers)

	if err := conn.WithContext(ctx).CreateInBatches(&rows, len(rows)).Error; err != nil {
		log.Error().Err(err).Msg("error seeding database")
		return 0, fmt.Errorf("insert sample customers: %w", err)
	}

	log.Info().Int("rows", len(rows)).Msg("seeded database with sample customers")
	return len(rows), nil
}
