package publishers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"xinbound/internal/inbound"
	"xinbound/internal/logger"
	"xinbound/internal/xray/sharelink"
)

// AddressKey carries the server address into publisher configs.
const AddressKey = "_address"

// GenerateSubscriptionPayload renders one share link per enabled record,
// newline separated, base64-encoded when config["base64"] is true.
// Records without a link grammar are skipped.
func GenerateSubscriptionPayload(records []*inbound.Record, config map[string]interface{}) (string, error) {
	address, _ := config[AddressKey].(string)
	if address == "" {
		return "", fmt.Errorf("no server address for share links")
	}

	seen := make(map[string]bool)
	var lines []string
	for _, rec := range records {
		if !rec.Enable {
			continue
		}
		l, err := sharelink.FromRecord(rec, address)
		if err != nil {
			if errors.Is(err, sharelink.ErrUnsupportedProtocol) {
				logger.Log.Debugf("Publisher skipped %q: %v", rec.Remark, err)
			} else {
				logger.Log.Warnf("Publisher dropped %q: %v", rec.Remark, err)
			}
			continue
		}
		if h := l.Hash(); !seen[h] {
			seen[h] = true
			lines = append(lines, l.String())
		}
	}

	finalText := strings.Join(lines, "\n")

	useBase64, _ := config["base64"].(bool)
	if useBase64 {
		return base64.StdEncoding.EncodeToString([]byte(finalText)), nil
	}
	return finalText, nil
}

// FilterProtocols keeps the records whose protocol is listed. An empty list
// keeps everything.
func FilterProtocols(records []*inbound.Record, protocols []string) []*inbound.Record {
	if len(protocols) == 0 {
		return records
	}
	allowed := make(map[inbound.Protocol]bool)
	for _, p := range protocols {
		allowed[inbound.Protocol(strings.ToLower(p))] = true
	}
	var out []*inbound.Record
	for _, rec := range records {
		if allowed[rec.Protocol()] {
			out = append(out, rec)
		}
	}
	return out
}
