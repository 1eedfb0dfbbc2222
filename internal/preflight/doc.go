// Package preflight provides readiness checks for the directories, local
// stores, and remote providers that subweave depends on.
//
// The CLI "subweave doctor" command runs these checks. Local checks always
// run; checks that call a remote provider run only when requested, since
// each one spends a translation request.
package preflight
