// Package subtitles reads and writes SubRip (.srt) cue tracks.
//
// Cues keep their original order and count through every translation step;
// only Text is rewritten. Timestamps are fractional seconds and render as
// HH:MM:SS,mmm. Indices are renumbered 1..N on output.
package subtitles
