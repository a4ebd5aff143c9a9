// Package intake evaluates consent request documents dropped into a
// directory.
//
// A document is a single request or a list of requests in JSON or YAML.
// Each one is evaluated through the service layer with source "intake",
// and the results are written to <outbox>/<name>.result.json: an object
// for a single request, an array for a list. A document that cannot be
// decoded produces an error record instead of results.
//
// The Watcher drains the inbox on start, then reacts to fsnotify create
// and write events. Events are debounced per file so an editor saving in
// several writes triggers one evaluation.
package intake
