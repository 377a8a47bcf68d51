// Package chronicle maintains the append-only record of everything said
// during a session.
//
// The log is the single source of truth for what happened: director
// narration, actor turns, and system notes all land here with strictly
// increasing, gap-free sequence numbers. Appends are serialized; reads
// observe a consistent prefix and never see a partially-appended record.
// Every successful append is also broadcast, in order, to subscribers
// attached before the append.
package chronicle
