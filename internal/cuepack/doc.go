// Package cuepack groups cue texts into translation batches.
//
// Every cue inside a batch is followed by the soft marker so that line
// boundaries can be recovered after a provider has rewritten the text. Batches
// stay within a character budget, prefer to end on a sentence boundary, and
// always cover the cue sequence contiguously.
package cuepack
