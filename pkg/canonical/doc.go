// Package canonical produces canonical JSON encodings and SHA-256 digests used
// to seal evaluation results.
//
// Canonical form follows RFC 8785 (JSON Canonicalization Scheme): object keys
// are sorted by UTF-16 code unit, insignificant whitespace is removed, and
// strings are not HTML-escaped. The same logical value therefore always
// encodes to the same bytes regardless of how it was constructed.
//
// # Usage
//
//	hash, err := canonical.Hash(map[string]any{
//	    "decision":     "ALLOW",
//	    "consent_cost": 1,
//	    "timestamp":    "2024-01-01T00:00:00Z",
//	})
//
// Digests are lowercase hex strings of length 64.
package canonical
