package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cx-lms-service/internal/domain"

	"github.com/uptrace/bun"
)

type offlineModule struct {
	bun.BaseModel `bun:"table:offline_modules"`

	ModuleID     string                     `bun:"module_id,pk"`
	Data         domain.OfflineModuleRecord `bun:"data,type:jsonb"`
	Size         int64                      `bun:"size"`
	DownloadedAt time.Time                  `bun:"downloaded_at"`
}

type offlineSection struct {
	bun.BaseModel `bun:"table:offline_sections"`

	ID       string                `bun:"id,pk"`
	ModuleID string                `bun:"module_id"`
	Data     domain.OfflineSection `bun:"data,type:jsonb"`
}

// OfflineStore persists snapshots in offline_modules and offline_sections; each
// write, removal and clear runs in one transaction.
type OfflineStore struct {
	db *bun.DB
}

func NewOfflineStore(db *bun.DB) *OfflineStore {
	return &OfflineStore{db: db}
}

func (s *OfflineStore) PutSnapshot(ctx context.Context, record domain.OfflineModuleRecord, sections []domain.OfflineSection) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*offlineSection)(nil)).Where("module_id = ?", record.ModuleID).Exec(ctx); err != nil {
			return err
		}
		mod := &offlineModule{
			ModuleID:     record.ModuleID,
			Data:         record,
			Size:         record.Size,
			DownloadedAt: record.DownloadedAt,
		}
		_, err := tx.NewInsert().
			Model(mod).
			On("CONFLICT (module_id) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("size = EXCLUDED.size").
			Set("downloaded_at = EXCLUDED.downloaded_at").
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(sections) == 0 {
			return nil
		}
		rows := make([]offlineSection, len(sections))
		for i, sec := range sections {
			rows[i] = offlineSection{ID: sec.Key, ModuleID: record.ModuleID, Data: sec}
		}
		_, err = tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func (s *OfflineStore) DeleteModule(ctx context.Context, moduleID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*offlineSection)(nil)).Where("module_id = ?", moduleID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*offlineModule)(nil)).Where("module_id = ?", moduleID).Exec(ctx)
		return err
	})
}

func (s *OfflineStore) Module(ctx context.Context, moduleID string) (domain.OfflineModuleRecord, bool, error) {
	var row offlineModule
	err := s.db.NewSelect().Model(&row).Where("module_id = ?", moduleID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OfflineModuleRecord{}, false, nil
	}
	if err != nil {
		return domain.OfflineModuleRecord{}, false, err
	}
	return row.Data, true, nil
}

func (s *OfflineStore) Modules(ctx context.Context) ([]domain.OfflineModuleRecord, error) {
	var rows []offlineModule
	if err := s.db.NewSelect().Model(&rows).Order("module_id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.OfflineModuleRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Data
	}
	return out, nil
}

func (s *OfflineStore) Sections(ctx context.Context, moduleID string) ([]domain.OfflineSection, error) {
	var rows []offlineSection
	if err := s.db.NewSelect().Model(&rows).Where("module_id = ?", moduleID).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.OfflineSection, len(rows))
	for i, row := range rows {
		out[i] = row.Data
	}
	return out, nil
}

func (s *OfflineStore) Clear(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*offlineSection)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*offlineModule)(nil)).Where("TRUE").Exec(ctx)
		return err
	})
}
