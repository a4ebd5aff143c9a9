// Covenant evaluates data-use requests against a fixed consent policy.
//
// Every request receives exactly one decision (ALLOW, ALLOW_WITH_CONTROLS,
// ESCALATE or DENY) sealed with a SHA-256 audit hash over canonical JSON.
// The same evaluator is reachable from the command line, over HTTP, and
// through a watched drop directory, and every evaluation can be recorded
// as evidence.
//
// Usage:
//
//	# Evaluate a request document
//	covenant evaluate request.json
//
//	# Evaluate from stdin and fail the pipeline on DENY
//	cat request.yaml | covenant evaluate --fail-on DENY
//
//	# Start the HTTP server
//	covenant serve --config covenant.yaml
//
//	# Evaluate documents dropped into a directory
//	covenant watch --dir data/inbox
//
//	# Query recorded evidence from the last day
//	covenant evidence query --since 24h --decision ESCALATE
//
//	# Check a result's audit hash
//	covenant verify result.json
package main

func main() {
	Execute()
}
