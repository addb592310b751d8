package permission

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/deathmotion/antihealthindicator/internal/cache"
)

// Subject is a player with explicitly granted permissions.
type Subject struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	UUID        string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name        string         `json:"name" gorm:"size:64"`
	Permissions datatypes.JSON `json:"permissions"`
}

func (*Subject) TableName() string {
	return "subjects"
}

// Logger interface for pluggable logging.
type Logger interface {
	Error(msg string, keysAndValues ...any)
}

// Store keeps grants in a SQL database. Lookups are served from a TTL
// cache; Grant and Revoke invalidate the subject's cached decisions.
type Store struct {
	db     *gorm.DB
	cache  *cache.PermissionCache
	logger Logger
}

// NewStore migrates the schema and returns a store backed by db.
func NewStore(db *gorm.DB, ttl time.Duration, logger Logger) (*Store, error) {
	if err := db.AutoMigrate(&Subject{}); err != nil {
		return nil, fmt.Errorf("failed to migrate subjects table: %w", err)
	}
	return &Store{db: db, cache: cache.NewPermissionCache(ttl), logger: logger}, nil
}

// HasPermission reports false when the store cannot be read.
func (s *Store) HasPermission(subject uuid.UUID, name string) bool {
	name = strings.ToLower(name)
	if allowed, ok := s.cache.Get(subject, name); ok {
		return allowed
	}

	perms, err := s.Permissions(subject)
	if err != nil {
		s.logger.Error("permission lookup failed", "subject", subject, "error", err)
		return false
	}
	allowed := slices.Contains(perms, name)
	s.cache.Set(subject, name, allowed)
	return allowed
}

// Permissions returns the lower-cased grants of subject.
func (s *Store) Permissions(subject uuid.UUID) ([]string, error) {
	var rec Subject
	err := s.db.Where("uuid = ?", subject.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subject %s: %w", subject, err)
	}
	return decodePermissions(rec.Permissions)
}

// Grant adds a permission to subject, creating the subject if needed.
func (s *Store) Grant(subject uuid.UUID, playerName, perm string) error {
	return s.modify(subject, playerName, func(perms []string) []string {
		perm = strings.ToLower(perm)
		if slices.Contains(perms, perm) {
			return perms
		}
		return append(perms, perm)
	})
}

// Revoke removes a permission from subject.
func (s *Store) Revoke(subject uuid.UUID, perm string) error {
	return s.modify(subject, "", func(perms []string) []string {
		perm = strings.ToLower(perm)
		return slices.DeleteFunc(perms, func(p string) bool { return p == perm })
	})
}

func (s *Store) modify(subject uuid.UUID, playerName string, fn func([]string) []string) error {
	defer s.cache.Invalidate(subject)

	return s.db.Transaction(func(tx *gorm.DB) error {
		rec := Subject{UUID: subject.String()}
		err := tx.Where("uuid = ?", rec.UUID).First(&rec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load subject %s: %w", subject, err)
		}

		perms, err := decodePermissions(rec.Permissions)
		if err != nil {
			return err
		}
		perms = fn(perms)

		encoded, err := json.Marshal(perms)
		if err != nil {
			return fmt.Errorf("failed to encode permissions: %w", err)
		}
		rec.Permissions = datatypes.JSON(encoded)
		if playerName != "" {
			rec.Name = playerName
		}

		if err := tx.Save(&rec).Error; err != nil {
			return fmt.Errorf("failed to save subject %s: %w", subject, err)
		}
		return nil
	})
}

func decodePermissions(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	perms := []string{}
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}
	return perms, nil
}
