package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/fanarena/voting-service/internal/core/domain"
)

// FingerprintHash derives a stable one-way correlation key from
// client-reported device attributes. Identical attribute tuples always hash
// identically and no attribute is recoverable from the digest. Missing
// attributes are tolerated; they only lower the hash's discriminative power.
func FingerprintHash(attrs domain.FingerprintAttributes) string {
	fields := []string{
		attrs.UserAgent,
		attrs.ScreenResolution,
		attrs.Timezone,
		attrs.Language,
		attrs.Platform,
	}

	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.ToLower(strings.TrimSpace(f))
	}

	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
