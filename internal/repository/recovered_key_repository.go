// Package repository はケースストアのデータアクセス層を提供する。
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edb-forensics/internal/domain"
)

// RecoveredKeyModel はgorm用のモデル定義。
type RecoveredKeyModel struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	ArtifactName string    `gorm:"type:varchar(255);not null;index:idx_artifact_name"`
	SealedKey    []byte    `gorm:"type:blob;not null"`
	Source       string    `gorm:"type:varchar(64);not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
}

// TableName はテーブル名を返す。
func (RecoveredKeyModel) TableName() string {
	return "recovered_keys"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *RecoveredKeyModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *RecoveredKeyModel) toDomain() *domain.RecoveredKey {
	return &domain.RecoveredKey{
		ID:           m.ID,
		ArtifactName: m.ArtifactName,
		SealedKey:    m.SealedKey,
		Source:       m.Source,
		CreatedAt:    m.CreatedAt,
	}
}

// RecoveredKeyRepository は探索で検証できた鍵を保存する。
type RecoveredKeyRepository struct {
	db *gorm.DB
}

// NewRecoveredKeyRepository は新しいRecoveredKeyRepositoryを生成する。
func NewRecoveredKeyRepository(db *gorm.DB) *RecoveredKeyRepository {
	return &RecoveredKeyRepository{db: db}
}

// Migrate はrecovered_keysテーブルを作成・更新する。
func (r *RecoveredKeyRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&RecoveredKeyModel{}); err != nil {
		slog.ErrorContext(ctx, "failed to migrate recovered_keys",
			"operation", "migrate",
			"error", err,
		)
		return err
	}
	return nil
}

// Create は封印済みの鍵を保存する。
func (r *RecoveredKeyRepository) Create(ctx context.Context, key *domain.RecoveredKey) error {
	model := &RecoveredKeyModel{
		ID:           key.ID,
		ArtifactName: key.ArtifactName,
		SealedKey:    key.SealedKey,
		Source:       key.Source,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create recovered key",
			"operation", "create",
			"artifact", key.ArtifactName,
			"error", err,
		)
		return err
	}
	key.ID = model.ID
	key.CreatedAt = model.CreatedAt
	return nil
}

// FindByArtifactName は指定アーティファクトの鍵を新しい順に返す。
func (r *RecoveredKeyRepository) FindByArtifactName(ctx context.Context, artifactName string) ([]*domain.RecoveredKey, error) {
	var models []RecoveredKeyModel
	err := r.db.WithContext(ctx).
		Where("artifact_name = ?", artifactName).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to find recovered keys",
			"operation", "find_by_artifact_name",
			"artifact", artifactName,
			"error", err,
		)
		return nil, err
	}

	keys := make([]*domain.RecoveredKey, len(models))
	for i := range models {
		keys[i] = models[i].toDomain()
	}
	return keys, nil
}

// CountByArtifactName は指定アーティファクトの保存済み鍵の数を返す。
func (r *RecoveredKeyRepository) CountByArtifactName(ctx context.Context, artifactName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&RecoveredKeyModel{}).
		Where("artifact_name = ?", artifactName).
		Count(&count).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to count recovered keys",
			"operation", "count_by_artifact_name",
			"artifact", artifactName,
			"error", err,
		)
		return 0, err
	}
	return count, nil
}
