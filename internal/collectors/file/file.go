package file

import (
	"context"
	"fmt"
	"os"

	"xinbound/internal/collectors"
	"xinbound/internal/xray/sharelink"
)

// Collector reads links from a local file, plain or base64.
type Collector struct{}

func (c *Collector) Collect(_ context.Context, config map[string]interface{}) ([]string, error) {
	path, _ := config["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("missing 'path' in collector config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sharelink.ExtractSubscription(string(data)), nil
}

func init() {
	collectors.Register("file", func() collectors.Collector {
		return &Collector{}
	})
}
