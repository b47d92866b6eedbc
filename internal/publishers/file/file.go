package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"
	"xinbound/internal/publishers"
)

// Publisher writes the subscription to a local path, for a web server to
// serve as a static file.
type Publisher struct{}

func (p *Publisher) Publish(_ context.Context, records []*inbound.Record, config map[string]interface{}) error {
	path, _ := config["path"].(string)
	if path == "" {
		return fmt.Errorf("file publisher requires path")
	}
	payload, err := publishers.GenerateSubscriptionPayload(records, config)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	// Readers must never see a partially written subscription.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("failed to write subscription: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace subscription: %w", err)
	}
	logger.Log.Debugf("Subscription written to %s", path)
	return nil
}

func init() {
	publishers.Register("file", func() publishers.Publisher { return &Publisher{} })
}
