// Package store persists inbound records in sqlite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"xinbound/internal/inbound"
	"xinbound/internal/model"
	"xinbound/internal/xray/sharelink"
)

var (
	ErrNotFound  = errors.New("inbound not found")
	ErrPortInUse = errors.New("port already used by another inbound")
)

// SourceEditor marks records created by hand rather than imported.
const SourceEditor = "editor"

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns every record, oldest first.
func (s *Store) List(ctx context.Context) ([]*inbound.Record, error) {
	var rows []model.Inbound
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list inbounds: %w", err)
	}
	recs := make([]*inbound.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].Record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *Store) Get(ctx context.Context, id string) (*inbound.Record, error) {
	var row model.Inbound
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return row.Record()
}

// Create inserts a new record. The runtime counters always start at zero.
func (s *Store) Create(ctx context.Context, rec *inbound.Record) error {
	return s.CreateFrom(ctx, rec, SourceEditor)
}

// CreateFrom inserts a record and remembers where it came from.
func (s *Store) CreateFrom(ctx context.Context, rec *inbound.Record, source string) error {
	if rec.ID == "" {
		return errors.New("inbound has no id")
	}
	row, err := model.FromRecord(rec)
	if err != nil {
		return err
	}
	row.Up, row.Down = 0, 0
	row.Hash = Identity(rec)
	row.Source = source

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkPort(tx, rec.ID, rec.Port); err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to create inbound: %w", err)
		}
		return nil
	})
}

// Update replaces the editable fields of a stored record. Counters, source
// and creation time are left as stored.
func (s *Store) Update(ctx context.Context, id string, rec *inbound.Record) error {
	row, err := model.FromRecord(rec)
	if err != nil {
		return err
	}
	row.ID = id
	row.Hash = Identity(rec)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkPort(tx, id, rec.Port); err != nil {
			return err
		}
		res := tx.Model(&model.Inbound{}).Where("id = ?", id).
			Select("remark", "enable", "protocol", "port", "tag", "listen", "total", "expiry",
				"settings", "stream_settings", "hash", "updated_at").
			Updates(row)
		if res.Error != nil {
			return fmt.Errorf("failed to update inbound: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Inbound{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete inbound: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled flips only the enable flag.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&model.Inbound{}).Where("id = ?", id).Update("enable", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update inbound: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Hashes returns the share-link identities of every stored record.
func (s *Store) Hashes(ctx context.Context) (map[string]bool, error) {
	var hashes []string
	if err := s.db.WithContext(ctx).Model(&model.Inbound{}).Where("hash <> ''").Pluck("hash", &hashes).Error; err != nil {
		return nil, err
	}
	return lo.SliceToMap(hashes, func(h string) (string, bool) { return h, true }), nil
}

func checkPort(tx *gorm.DB, id string, port int) error {
	var n int64
	if err := tx.Model(&model.Inbound{}).Where("port = ? AND id <> ?", port, id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d", ErrPortInUse, port)
	}
	return nil
}

// Identity is the record's link hash, or "" when it has no link grammar.
func Identity(rec *inbound.Record) string {
	l, err := sharelink.FromRecord(rec, "")
	if err != nil {
		return ""
	}
	return l.Hash()
}

// Summary counts stored records along a few axes.
type Summary struct {
	Total      int
	Enabled    int
	ByProtocol map[inbound.Protocol]int
	ByNetwork  map[inbound.Network]int
	BySecurity map[inbound.SecurityKind]int
}

func Summarize(recs []*inbound.Record) Summary {
	return Summary{
		Total:      len(recs),
		Enabled:    lo.CountBy(recs, func(r *inbound.Record) bool { return r.Enable }),
		ByProtocol: lo.CountValuesBy(recs, func(r *inbound.Record) inbound.Protocol { return r.Protocol() }),
		ByNetwork:  lo.CountValuesBy(recs, func(r *inbound.Record) inbound.Network { return r.Stream.Network() }),
		BySecurity: lo.CountValuesBy(recs, func(r *inbound.Record) inbound.SecurityKind { return r.Stream.SecurityKind() }),
	}
}
