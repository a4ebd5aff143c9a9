// Package logging builds *slog.Logger values with PII redaction and
// context-carried fields.
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "evaluation complete", "decision", "ALLOW")
//	// {"level":"INFO","msg":"evaluation complete","request_id":"req-123","decision":"ALLOW"}
//
// # Redaction
//
// With RedactPII enabled, string attribute values pass through the built-in
// patterns in order (bearer tokens, api keys, passwords, emails, IPv4
// addresses) and then any configured custom patterns:
//
//   - Bearer abc.def → Bearer ***
//   - sk-abc123xyz → sk-***
//   - user@example.com → u***@example.com
//   - 192.168.1.100 → 192.*.*.*
//
// Attributes whose key names a credential (password, token, secret,
// api_key, authorization) are masked regardless of content.
package logging
