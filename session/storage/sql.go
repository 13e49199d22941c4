package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const SQLiteStoreName = "sqlite"

type sessionRecord struct {
	ID        string `gorm:"primaryKey;size:128"`
	Data      string
	UpdatedAt time.Time
}

func (sessionRecord) TableName() string {
	return "sessions"
}

// SQLStore keeps payloads as JSON documents in a gorm table. Numbers come
// back as float64, as with any JSON round trip.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database file at path and migrates
// the sessions table.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}

	return NewSQLStore(db)
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&sessionRecord{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Has(id string) bool {
	var count int64
	if err := s.db.Model(&sessionRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

func (s *SQLStore) Get(id string) (map[string]any, error) {
	var record sessionRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	data := make(map[string]any)
	if err := json.Unmarshal([]byte(record.Data), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SQLStore) Save(id string, data map[string]any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.db.Save(&sessionRecord{ID: id, Data: string(encoded)}).Error
}

func (s *SQLStore) Delete(id string) error {
	return s.db.Delete(&sessionRecord{}, "id = ?", id).Error
}

func (s *SQLStore) Move(oldID, newID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var record sessionRecord
		if err := tx.First(&record, "id = ?", oldID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if err := tx.Delete(&sessionRecord{}, "id = ?", oldID).Error; err != nil {
			return err
		}
		return tx.Create(&sessionRecord{ID: newID, Data: record.Data}).Error
	})
}
