package model

import (
	"encoding/json"
	"fmt"
	"time"

	"xinbound/internal/inbound"
)

// Inbound is the stored row of an inbound record. Settings and stream
// settings are kept as JSON text.
type Inbound struct {
	ID       string `gorm:"primaryKey"`
	Remark   string
	Enable   bool   `gorm:"index"`
	Protocol string `gorm:"index"`
	Port     int    `gorm:"index"`
	Tag      string
	Listen   string

	Total  int64
	Expiry int64
	Up     int64
	Down   int64

	Settings       string
	StreamSettings string

	// Hash is the share-link identity, empty for protocols without links.
	Hash   string `gorm:"index"`
	Source string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FromRecord converts a record into a row. Runtime counters are copied as
// given; callers decide whether they may be written.
func FromRecord(rec *inbound.Record) (*Inbound, error) {
	if rec.Settings == nil {
		return nil, fmt.Errorf("inbound %s has no protocol settings", rec.ID)
	}
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return nil, err
	}
	stream, err := json.Marshal(rec.Stream)
	if err != nil {
		return nil, err
	}
	return &Inbound{
		ID:             rec.ID,
		Remark:         rec.Remark,
		Enable:         rec.Enable,
		Protocol:       string(rec.Protocol()),
		Port:           rec.Port,
		Tag:            rec.Tag,
		Listen:         rec.Listen,
		Total:          rec.Total,
		Expiry:         rec.Expiry,
		Up:             rec.Up,
		Down:           rec.Down,
		Settings:       string(settings),
		StreamSettings: string(stream),
	}, nil
}

// Record decodes the row back into a record.
func (m *Inbound) Record() (*inbound.Record, error) {
	settings, err := inbound.DecodeSettings(inbound.Protocol(m.Protocol), []byte(m.Settings))
	if err != nil {
		return nil, fmt.Errorf("inbound %s: %w", m.ID, err)
	}
	stream, err := inbound.DecodeStream([]byte(m.StreamSettings))
	if err != nil {
		return nil, fmt.Errorf("inbound %s: %w", m.ID, err)
	}
	return &inbound.Record{
		ID:       m.ID,
		Remark:   m.Remark,
		Enable:   m.Enable,
		Port:     m.Port,
		Tag:      m.Tag,
		Listen:   m.Listen,
		Total:    m.Total,
		Expiry:   m.Expiry,
		Up:       m.Up,
		Down:     m.Down,
		Settings: settings,
		Stream:   stream,
	}, nil
}
