package store

import (
	"context"
	stderrors "errors"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"liveness-playground/internal/platform/errors"
	"liveness-playground/internal/platform/storage"
)

type sqliteStore struct {
	db    *gorm.DB
	owned bool
}

// NewSQLite wraps db. When owned is set, Close closes db.
func NewSQLite(db *gorm.DB, owned bool) (Store, error) {
	if db == nil {
		return nil, errors.New(errors.KindConfig, "endpoint_store.sqlite", "sqlite store requires database handle")
	}
	return &sqliteStore{db: db, owned: owned}, nil
}

func (s *sqliteStore) Put(ctx context.Context, rec Record) error {
	if rec.Tag == "" {
		return errors.New(errors.KindValidation, "endpoint_store.put", "tag required")
	}
	var headers datatypes.JSON
	if len(rec.Headers) > 0 {
		data, err := sonic.Marshal(rec.Headers)
		if err != nil {
			return errors.Wrap(errors.KindStorage, "endpoint_store.put", "encode headers", err)
		}
		headers = datatypes.JSON(data)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing storage.SDKEndpoint
		err := tx.Where("tag = ?", rec.Tag).First(&existing).Error
		switch {
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&storage.SDKEndpoint{
				Tag:      rec.Tag,
				URL:      rec.URL,
				Headers:  headers,
				Position: rec.Position,
			}).Error
		case err != nil:
			return err
		}
		existing.URL = rec.URL
		existing.Headers = headers
		existing.Position = rec.Position
		return tx.Save(&existing).Error
	})
	return errors.Wrap(errors.KindStorage, "endpoint_store.put", "save endpoint "+rec.Tag, err)
}

func (s *sqliteStore) Get(ctx context.Context, tag string) (Record, error) {
	var row storage.SDKEndpoint
	err := s.db.WithContext(ctx).Where("tag = ?", tag).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.KindStorage, "endpoint_store.get", "load endpoint "+tag, err)
	}
	return toRecord(row), nil
}

func (s *sqliteStore) Remove(ctx context.Context, tag string) error {
	err := s.db.WithContext(ctx).Where("tag = ?", tag).Delete(&storage.SDKEndpoint{}).Error
	return errors.Wrap(errors.KindStorage, "endpoint_store.remove", "delete endpoint "+tag, err)
}

func (s *sqliteStore) List(ctx context.Context) ([]Record, error) {
	var rows []storage.SDKEndpoint
	if err := s.db.WithContext(ctx).Order("position ASC, tag ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "endpoint_store.list", "list endpoints", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

func (s *sqliteStore) Close(context.Context) error {
	if !s.owned {
		return nil
	}
	return storage.Close(s.db)
}

func toRecord(row storage.SDKEndpoint) Record {
	rec := Record{
		Tag:       row.Tag,
		URL:       row.URL,
		Position:  row.Position,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Headers) > 0 {
		var headers map[string]string
		if err := sonic.Unmarshal(row.Headers, &headers); err == nil && len(headers) > 0 {
			rec.Headers = headers
		}
	}
	return rec
}
