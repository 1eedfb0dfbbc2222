// Package cache persists validated batch translations in SQLite so repeated
// runs over the same subtitles skip the provider.
//
// Entries are keyed by provider, target language, and the SHA-256 of the
// batch text sent to the provider. Only results that passed validation are
// stored.
package cache
