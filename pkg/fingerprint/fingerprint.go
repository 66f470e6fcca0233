// Package fingerprint hashes harvested payloads so unchanged re-deliveries can be skipped.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Generate creates a deterministic fingerprint for a record payload together with the
// linkage fields that influence deduplication. JSON payloads are canonicalized first so
// object key order does not matter; other payloads are hashed with surrounding whitespace
// trimmed.
func Generate(format string, payload []byte, hostRecordID, linkingID string) string {
	h := sha256.New()
	for _, part := range []string{format, hostRecordID, linkingID} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			h.Write([]byte(canonicalize(v)))
			return hex.EncodeToString(h.Sum(nil))
		}
	}
	h.Write(trimmed)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalize creates a deterministic string representation by sorting object keys.
// Array order is significant and kept.
func canonicalize(data any) string {
	var b strings.Builder
	writeCanonical(&b, data)
	return b.String()
}

func writeCanonical(b *strings.Builder, data any) {
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, _ := json.Marshal(k)
			b.Write(keyJSON)
			b.WriteByte(':')
			writeCanonical(b, v[k])
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	default:
		// For primitives, use JSON encoding
		out, _ := json.Marshal(v)
		b.Write(out)
	}
}

// HasChanged compares two fingerprints to detect changes
func HasChanged(oldFingerprint, newFingerprint string) bool {
	return oldFingerprint != newFingerprint
}
