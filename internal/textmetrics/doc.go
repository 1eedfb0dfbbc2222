// Package textmetrics measures rendered text width in pixels.
//
// Faces are prepared once per (family, size) and shared by every caller.
// A failed measurement drops the cached face and retries with a fresh one;
// when every attempt fails the width falls back to a character-count
// estimate, so callers never see an error.
package textmetrics
