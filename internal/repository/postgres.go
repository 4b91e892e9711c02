package repository

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
	"github.com/shopspring/decimal"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.Intent{}, &models.EscrowWallet{}, &models.OAuthCredential{}, &models.Cursor{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}

	// Name and symbol stay reserved for every non-FAILED intent. AutoMigrate
	// cannot express partial indexes, so they are created directly.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_intents_active_name ON intents (name) WHERE status <> 'FAILED'`).Error; err != nil {
		return nil, fmt.Errorf("failed to create name index: %s", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_intents_active_symbol ON intents (symbol) WHERE status <> 'FAILED'`).Error; err != nil {
		return nil, fmt.Errorf("failed to create symbol index: %s", err)
	}

	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) CreateIntent(intent *models.Intent) error {
	// Pre-checks give the caller a precise duplicate reason; the unique
	// indexes remain the backstop under concurrent ingestion.
	var existing models.Intent
	if err := db.Conn.Where("post_id = ?", intent.PostID).First(&existing).Error; err == nil {
		return models.ErrDuplicatePost
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for duplicate post: %s", err)
	}
	if err := db.Conn.Where("name = ? AND status <> ?", intent.Name, models.StatusFailed).First(&existing).Error; err == nil {
		return models.ErrDuplicateName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for duplicate name: %s", err)
	}
	if err := db.Conn.Where("symbol = ? AND status <> ?", intent.Symbol, models.StatusFailed).First(&existing).Error; err == nil {
		return models.ErrDuplicateSymbol
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for duplicate symbol: %s", err)
	}

	if err := db.Conn.Create(intent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicatePost
		}
		return fmt.Errorf("failed to create intent: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetIntent(id int64) (*models.Intent, error) {
	var intent models.Intent
	if err := db.Conn.First(&intent, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get intent: %s", err)
	}
	return &intent, nil
}

func (db *PostgresDB) IntentsByStatus(status models.IntentStatus, limit int) ([]*models.Intent, error) {
	var intents []*models.Intent
	if err := db.Conn.Where("status = ?", status).Order("created_at ASC").Limit(limit).Find(&intents).Error; err != nil {
		return nil, fmt.Errorf("failed to get intents by status: %s", err)
	}
	return intents, nil
}

func (db *PostgresDB) IntentsByRequester(username string, status models.IntentStatus) ([]*models.Intent, error) {
	var intents []*models.Intent
	if err := db.Conn.Where("requester_username = ? AND status = ?", username, status).Order("created_at ASC").Find(&intents).Error; err != nil {
		return nil, fmt.Errorf("failed to get intents by requester: %s", err)
	}
	return intents, nil
}

// TransitionIntent performs the compare-and-swap state move: the UPDATE is
// conditioned on the expected current state, and zero affected rows means
// another instance won the claim.
func (db *PostgresDB) TransitionIntent(id int64, from, to models.IntentStatus, patch map[string]interface{}) (*models.Intent, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range patch {
		updates[k] = v
	}

	res := db.Conn.Model(&models.Intent{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to transition intent: %s", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.ErrStaleState
	}

	return db.GetIntent(id)
}

func (db *PostgresDB) RecordIntentFailure(id int64, status models.IntentStatus, reason string) error {
	updates := map[string]interface{}{
		"status":           status,
		"processing_error": reason,
	}
	if err := db.Conn.Model(&models.Intent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to record intent failure: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetEscrowWallet(username string) (*models.EscrowWallet, error) {
	var wallet models.EscrowWallet
	if err := db.Conn.Where("username = ?", username).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get escrow wallet: %s", err)
	}
	return &wallet, nil
}

func (db *PostgresDB) AddEscrowWallet(wallet *models.EscrowWallet) error {
	if err := db.Conn.Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create escrow wallet: %s", err)
	}
	return nil
}

func (db *PostgresDB) TouchEscrowWallet(username string, lastUsedAt int64) error {
	if err := db.Conn.Model(&models.EscrowWallet{}).Where("username = ?", username).Update("last_used_at", lastUsedAt).Error; err != nil {
		return fmt.Errorf("failed to update escrow wallet last-used time: %s", err)
	}
	return nil
}

func (db *PostgresDB) AddEscrowFees(username string, amount decimal.Decimal) error {
	wallet, err := db.GetEscrowWallet(username)
	if err != nil {
		return err
	}
	total, err := decimal.NewFromString(wallet.FeesCollected)
	if err != nil {
		total = decimal.Zero
	}
	total = total.Add(amount)
	if err := db.Conn.Model(&models.EscrowWallet{}).Where("username = ?", username).Update("fees_collected", total.String()).Error; err != nil {
		return fmt.Errorf("failed to update escrow wallet fees: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetOAuthCredential(service string) (*models.OAuthCredential, error) {
	var credential models.OAuthCredential
	if err := db.Conn.Where("service = ?", service).First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get oauth credential: %s", err)
	}
	return &credential, nil
}

func (db *PostgresDB) SaveOAuthCredential(credential *models.OAuthCredential) error {
	if err := db.Conn.Save(credential).Error; err != nil {
		return fmt.Errorf("failed to save oauth credential: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetCursor(name string) (string, error) {
	var cursor models.Cursor
	if err := db.Conn.Where("name = ?", name).First(&cursor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get cursor: %s", err)
	}
	return cursor.Value, nil
}

func (db *PostgresDB) SetCursor(name, value string) error {
	if err := db.Conn.Save(&models.Cursor{Name: name, Value: value}).Error; err != nil {
		return fmt.Errorf("failed to set cursor: %s", err)
	}
	return nil
}
