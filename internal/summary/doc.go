// Package summary generates "too long to watch" Markdown digests of a cue
// track.
//
// The plain text of the track is split into chunks that are summarized one
// by one with end-marker long-form generation. When there is more than one
// chunk a final synthesis request merges the partial summaries. Terminal
// failures (credentials exhausted, generation never finished) propagate.
package summary
