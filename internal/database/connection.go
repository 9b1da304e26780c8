// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.ArtistManagerRepresentation{},
		&models.Event{},
		&models.Booking{},
		&models.NegotiationMessage{},
		&models.CancellationCase{},
		&models.CancellationResolution{},
		&models.CancellationEconomicExecution{},
		&models.PaymentMilestone{},
		&models.SplitSummary{},
		&models.ContractDocument{},
		&models.Notification{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)",
		"CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)",
		"CREATE INDEX IF NOT EXISTS idx_users_type_status ON users(user_type, status)",

		// Representation indexes
		"CREATE INDEX IF NOT EXISTS idx_representations_artist ON artist_manager_representations(artist_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_representations_manager ON artist_manager_representations(manager_id, is_active)",

		// Booking indexes
		"CREATE INDEX IF NOT EXISTS idx_bookings_artist ON bookings(artist_id)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_venue ON bookings(venue_id)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_promoter ON bookings(promoter_id)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)",
		"CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at DESC)",

		// Negotiation indexes
		"CREATE INDEX IF NOT EXISTS idx_negotiation_messages_booking ON negotiation_messages(booking_id, created_at)",
		// At most one final offer per booking, enforced at the storage layer
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_negotiation_final_offer ON negotiation_messages(booking_id) WHERE is_final_offer",

		// Cancellation indexes
		"CREATE INDEX IF NOT EXISTS idx_cancellation_cases_booking ON cancellation_cases(booking_id)",
		"CREATE INDEX IF NOT EXISTS idx_cancellation_cases_status ON cancellation_cases(status, created_at DESC)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cancellation_resolutions_case ON cancellation_resolutions(cancellation_case_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cancellation_executions_case ON cancellation_economic_executions(cancellation_case_id)",

		// Payment indexes
		"CREATE INDEX IF NOT EXISTS idx_payment_milestones_booking ON payment_milestones(booking_id)",
		"CREATE INDEX IF NOT EXISTS idx_payment_milestones_status ON payment_milestones(status)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_split_summaries_booking ON split_summaries(booking_id)",
		"CREATE INDEX IF NOT EXISTS idx_contract_documents_booking ON contract_documents(booking_id)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, status, created_at DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Seed initial data
func SeedInitialData(db *gorm.DB) error {
	log.Println("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount)

	if adminCount == 0 {
		admin := &models.User{
			Username: "admin",
			Email:    "admin@artime.io",
			UserType: models.UserTypeAdmin,
			Status:   models.UserStatusActive,
			ProfileData: models.JSONB{
				"first_name": "System",
				"last_name":  "Administrator",
				"role":       "super_admin",
			},
		}

		if err := admin.SetPassword("admin123!@#"); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("Default admin user created successfully")
	}

	log.Println("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
