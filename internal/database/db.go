package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	model "auctions/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported values for the driver argument of Open
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Open connects to the configured database and verifies the connection.
// sqlite is limited to a single connection since it serialises writers anyway.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger: gormlogger.New(log.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if strings.ToLower(driver) == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Ping(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}

// InMemoryDSN returns a sqlite DSN for a private in-memory database named name
func InMemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
}

// Ping checks the connection with a short timeout
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Category{}, &model.Listing{}, &model.Bid{}, &model.Comment{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// SeedCategories inserts the named categories that do not exist yet
func SeedCategories(db *gorm.DB, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var c model.Category
		err := db.Where("name = ?", name).First(&c).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		if err := db.Create(&model.Category{Name: name}).Error; err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}
