// Package language normalizes target language identifiers.
//
// Users pass codes ("es"), regional tags ("pt-br"), ISO 639-2 codes ("spa"),
// or English names ("spanish"); Canonical turns each into a BCP 47 tag that
// both translation backends accept. DisplayName renders tags for prompts and
// reports.
package language
