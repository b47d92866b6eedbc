package sharelink

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hash identifies the endpoint a link points at. Two links that differ only
// in remark or parameter order hash the same.
func (l *Link) Hash() string {
	network := strings.ToLower(string(l.Network))
	if network == "" {
		network = "tcp"
	}
	security := strings.ToLower(string(l.Security))
	if security == "" {
		security = "none"
	}

	parts := []string{
		string(l.Protocol),
		strings.ToLower(l.Address),
		strconv.Itoa(l.Port),
		l.Credential,
		network,
		security,
		l.Path,
		strings.ToLower(l.Host),
		l.ServiceName,
		l.Flow,
		strings.ToLower(l.SNI),
		// Reality keys are case sensitive.
		l.PublicKey,
		l.ShortID,
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
