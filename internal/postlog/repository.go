package postlog

import (
	"context"

	"stagehand/internal/core"
	"stagehand/internal/persistence"
)

// Repository stores posted entries in Postgres.
type Repository struct {
	DB *persistence.DB
}

func (r *Repository) Init(_ context.Context) error {
	return r.DB.AutoMigrate(&core.PostedEntry{})
}

func (r *Repository) Append(ctx context.Context, entry core.PostedEntry) error {
	return r.DB.Model(&core.PostedEntry{}).WithContext(ctx).Create(&entry).Error
}
