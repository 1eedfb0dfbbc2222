// Package credentials normalizes API key lists and rotates between them.
//
// A Ring is shared by every concurrent task of a backend. Rotation advances
// to the next key in configuration order, wraps around, and records the key
// that was active before so logs can report the switch.
package credentials
