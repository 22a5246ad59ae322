// Package logtail reads the tail of Beacon's log file and renders its JSON
// records for the TUI log pane.
//
// # Reading
//
// Read keeps a ring buffer of maxLines and scans the file once, so memory
// stays O(maxLines) regardless of file size:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line: store at index, advance index modulo maxLines
//	3. Fewer lines than maxLines: return the filled prefix
//	4. Otherwise: return the buffer starting at the oldest entry
//
// A missing file returns nil, nil. The log pane is empty until the first
// record is written.
//
// # Formatting
//
// Records written by internal/logging are JSON objects. Format renders them
// as one line:
//
//	21:01:08 WARN  [locate] locate attempt failed, retry scheduled reason="..." retry=1
//
// The timestamp, level, msg and component keys are pulled to the front and
// service is dropped. Remaining attributes follow in key order. Lines that
// are not JSON objects are returned unchanged, so panics and stray writes
// still show up.
package logtail
