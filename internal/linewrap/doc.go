// Package linewrap breaks timed words into width-bounded segments and
// segment text into a fixed number of balanced lines.
//
// Breaks prefer to keep sentence-ending punctuation on the line it ends and
// avoid stranding a short word at a line start. Widths come from a Measurer,
// normally *textmetrics.Measurer.
package linewrap
