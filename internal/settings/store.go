package settings

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vellum/internal/database"
)

// Store is the durable side of the settings subsystem: single-row keyed
// reads and committed upserts against the settings table. It does no
// caching and no default substitution; that is the Cache's job. Errors
// (missing table on first run, closed pool) propagate to the caller.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the stored value for key. A NULL value reads as "".
func (s *Store) Get(key string) (string, bool, error) {
	var row database.Setting
	err := s.db.First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings get %q: %w", key, err)
	}
	if row.Value == nil {
		return "", true, nil
	}
	return *row.Value, true, nil
}

// GetMany returns the requested keys as a map; with no keys it returns the
// entire table. Absent keys are simply missing from the result.
func (s *Store) GetMany(keys ...string) (map[string]string, error) {
	var rows []database.Setting

	q := s.db
	if len(keys) > 0 {
		q = q.Where("key IN ?", keys)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("settings scan: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.Value == nil {
			out[row.Key] = ""
			continue
		}
		out[row.Key] = *row.Value
	}
	return out, nil
}

// Set upserts key to value. The write is committed before Set returns, so a
// follow-up Invalidate+Load observes it.
func (s *Store) Set(key, value string) error {
	row := database.Setting{Key: key, Value: &value}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("settings set %q: %w", key, err)
	}
	return nil
}

// Delete removes key, reporting whether a row actually existed.
func (s *Store) Delete(key string) (bool, error) {
	res := s.db.Where("key = ?", key).Delete(&database.Setting{})
	if res.Error != nil {
		return false, fmt.Errorf("settings delete %q: %w", key, res.Error)
	}
	return res.RowsAffected > 0, nil
}
