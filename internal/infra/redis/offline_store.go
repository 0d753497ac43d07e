package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cx-lms-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	offlineModulesKey = "lms:offline:modules"
	clearRetries      = 3
)

// OfflineStore keeps module records in one hash and each module's sections in its own
// hash. Writes and removals run inside MULTI/EXEC so readers never see a torn snapshot.
type OfflineStore struct {
	client *redis.Client
}

func NewOfflineStore(client *redis.Client) *OfflineStore {
	return &OfflineStore{client: client}
}

func sectionsKey(moduleID string) string {
	return "lms:offline:sections:" + moduleID
}

func (s *OfflineStore) PutSnapshot(ctx context.Context, record domain.OfflineModuleRecord, sections []domain.OfflineSection) error {
	recData, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fields := make([]interface{}, 0, len(sections)*2)
	for _, sec := range sections {
		data, err := json.Marshal(sec)
		if err != nil {
			return fmt.Errorf("encode section %s: %w", sec.Key, err)
		}
		fields = append(fields, sec.Key, data)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sectionsKey(record.ModuleID))
		if len(fields) > 0 {
			pipe.HSet(ctx, sectionsKey(record.ModuleID), fields...)
		}
		pipe.HSet(ctx, offlineModulesKey, record.ModuleID, recData)
		return nil
	})
	return err
}

func (s *OfflineStore) DeleteModule(ctx context.Context, moduleID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, offlineModulesKey, moduleID)
		pipe.Del(ctx, sectionsKey(moduleID))
		return nil
	})
	return err
}

func (s *OfflineStore) Module(ctx context.Context, moduleID string) (domain.OfflineModuleRecord, bool, error) {
	data, err := s.client.HGet(ctx, offlineModulesKey, moduleID).Bytes()
	if isNil(err) {
		return domain.OfflineModuleRecord{}, false, nil
	}
	if err != nil {
		return domain.OfflineModuleRecord{}, false, err
	}
	var rec domain.OfflineModuleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.OfflineModuleRecord{}, false, fmt.Errorf("decode module %s: %w", moduleID, err)
	}
	return rec, true, nil
}

func (s *OfflineStore) Modules(ctx context.Context) ([]domain.OfflineModuleRecord, error) {
	all, err := s.client.HGetAll(ctx, offlineModulesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.OfflineModuleRecord, 0, len(all))
	for id, raw := range all {
		var rec domain.OfflineModuleRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode module %s: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *OfflineStore) Sections(ctx context.Context, moduleID string) ([]domain.OfflineSection, error) {
	all, err := s.client.HGetAll(ctx, sectionsKey(moduleID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.OfflineSection, 0, len(all))
	for key, raw := range all {
		var sec domain.OfflineSection
		if err := json.Unmarshal([]byte(raw), &sec); err != nil {
			return nil, fmt.Errorf("decode section %s: %w", key, err)
		}
		out = append(out, sec)
	}
	return out, nil
}

// Clear drops every module record and section hash in one transaction, retrying
// when a concurrent write touches the module index.
func (s *OfflineStore) Clear(ctx context.Context) error {
	drop := func(tx *redis.Tx) error {
		ids, err := tx.HKeys(ctx, offlineModulesKey).Result()
		if err != nil && !isNil(err) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, offlineModulesKey)
			for _, id := range ids {
				pipe.Del(ctx, sectionsKey(id))
			}
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < clearRetries; i++ {
		err = s.client.Watch(ctx, drop, offlineModulesKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
