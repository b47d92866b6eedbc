// Package session drives one editing flow: it owns a field model, applies
// the builder and validator, and submits the result to storage.
package session

import (
	"context"
	"sync"

	"xinbound/internal/form"
	"xinbound/internal/inbound"
	"xinbound/internal/keygen"
	"xinbound/internal/logger"
)

// Store is the part of storage a session writes to.
type Store interface {
	Create(ctx context.Context, rec *inbound.Record) error
	Update(ctx context.Context, id string, rec *inbound.Record) error
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}

// Editor opens sessions and performs the record operations that need no
// field model.
type Editor struct {
	store Store
	keys  keygen.Source
	env   form.Env
}

func NewEditor(store Store, keys keygen.Source, env form.Env) *Editor {
	return &Editor{store: store, keys: keys, env: env}
}

// Create starts a session for a new inbound.
func (e *Editor) Create() *Session {
	return &Session{editor: e, model: form.New(e.env)}
}

// Edit starts a session for an existing record.
func (e *Editor) Edit(rec *inbound.Record) *Session {
	return &Session{editor: e, id: rec.ID, model: form.FromRecord(rec, e.env)}
}

// Toggle changes only the enable flag of a stored record.
func (e *Editor) Toggle(ctx context.Context, id string, enabled bool) error {
	return e.store.SetEnabled(ctx, id, enabled)
}

func (e *Editor) Delete(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Session is safe for concurrent use.
type Session struct {
	editor *Editor

	mu    sync.Mutex
	id    string
	model *form.FieldModel
}

// ID is the record being edited, or "" for a new one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Model returns a copy of the current field values.
func (s *Session) Model() form.FieldModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.model
}

// Update applies fn to the field model under the session lock.
func (s *Session) Update(fn func(fm *form.FieldModel)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.model)
}

// SetSecurity switches the security layer, filling in reality defaults.
func (s *Session) SetSecurity(kind inbound.SecurityKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.SetSecurity(kind, s.editor.env)
}

// RegenerateKeys fetches a new reality key pair and stores both halves at
// once. The fetch runs outside the lock, so overlapping calls may finish in
// any order; the last one to finish wins. On failure the current keys stay.
func (s *Session) RegenerateKeys(ctx context.Context) error {
	kp, err := s.editor.keys.GenerateKeyPair(ctx)
	if err != nil {
		logger.Log.Warnf("Key generation failed: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.ApplyKeyPair(kp)
	return nil
}

// Submit validates, builds and stores the record. Nothing is written when
// validation or building fails.
func (s *Session) Submit(ctx context.Context) (*inbound.Record, error) {
	s.mu.Lock()
	fm := *s.model
	id := s.id
	s.mu.Unlock()

	if err := form.Validate(&fm); err != nil {
		return nil, err
	}
	rec, err := form.Build(&fm, id, s.editor.env)
	if err != nil {
		return nil, err
	}

	if id == "" {
		if err := s.editor.store.Create(ctx, rec); err != nil {
			return nil, err
		}
		// Further submits of this session edit the record just created.
		s.mu.Lock()
		s.id = rec.ID
		s.mu.Unlock()
		logger.Log.Infof("Created inbound %q (%s) on port %d", rec.Remark, rec.Protocol(), rec.Port)
		return rec, nil
	}

	if err := s.editor.store.Update(ctx, id, rec); err != nil {
		return nil, err
	}
	logger.Log.Infof("Updated inbound %q", rec.Remark)
	return rec, nil
}
