// Package bulk translates packed cue batches through providers that return
// free text with no structural guarantees.
//
// Each batch walks an explicit fallback chain. The soft-marker text is tried
// first and accepted only when it validates; a rotating hard marker is tried
// next; as a last resort every cue is translated on its own. The chain always
// ends in a Result, so a batch is never dropped.
package bulk
