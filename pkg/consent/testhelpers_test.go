package consent

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

var testInstant = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func computeSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// validRequest returns a request that evaluates to ALLOW with cost 1.
func validRequest() *Request {
	return &Request{
		ConsentState:     String("EXPLICIT"),
		IntendedUse:      String("CORE_SERVICE"),
		SensitivityLevel: String("LOW"),
		Transfer:         Bool(false),
		Aggregation:      Bool(false),
		Timestamp:        String("2024-01-01T00:00:00Z"),
	}
}

func withField(req *Request, mutate func(*Request)) *Request {
	cp := *req
	mutate(&cp)
	return &cp
}
