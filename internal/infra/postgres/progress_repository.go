package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cx-lms-service/internal/domain"

	"github.com/uptrace/bun"
)

type learnerProgress struct {
	bun.BaseModel `bun:"table:learner_progress"`

	LearnerID string          `bun:"learner_id,pk"`
	Data      domain.Progress `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at"`
}

// ProgressRepository stores one JSONB progress document per learner.
type ProgressRepository struct {
	db  *bun.DB
	now func() time.Time
}

func NewProgressRepository(db *bun.DB) *ProgressRepository {
	return &ProgressRepository{db: db, now: time.Now}
}

func (r *ProgressRepository) Load(ctx context.Context, learnerID string) (domain.Progress, error) {
	var row learnerProgress
	err := r.db.NewSelect().Model(&row).Where("learner_id = ?", learnerID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewProgress(), nil
	}
	if err != nil {
		return domain.Progress{}, err
	}
	row.Data.Normalize()
	return row.Data, nil
}

func (r *ProgressRepository) Save(ctx context.Context, learnerID string, progress domain.Progress) error {
	row := &learnerProgress{LearnerID: learnerID, Data: progress, UpdatedAt: r.now()}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (learner_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}
