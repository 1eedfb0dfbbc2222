// Package textutil provides text normalization helpers shared by the packer,
// the reconstructor, and the bulk validator.
//
// The primary use cases are:
//   - Collapsing whitespace and measuring text in characters (runes)
//   - Case-folded, NFKC-normalized comparison for echo detection
//   - Sanitizing filenames for derived output paths
package textutil
