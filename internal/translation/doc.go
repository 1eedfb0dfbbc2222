// Package translation orchestrates subtitle translation runs.
//
// The Engine takes a cue track through one of two paths. The bulk path packs
// cue texts into marker-delimited batches, sends them through the bulk
// fallback chain, and reconciles each batch back onto its cues. The
// structured path sends indexed cues to an LLM under credential rotation.
// Both paths finish by re-wrapping each translated cue to its original line
// count. Cue count and order are preserved on every path.
package translation
