// Package structured translates cues through text generation providers that
// accept an explicitly indexed batch and answer with one object per cue.
//
// Requests run under a credential ring: any failure with the active key
// rotates to the next one and the request is retried, each key at most once
// per request. Running out of keys is a terminal error.
//
// The package also drives long-form generation with an end-of-document
// marker, issuing continuation requests when output is cut short.
package structured
