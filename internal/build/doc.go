// Package build implements the ockamctl build flows on top of the tool
// runner: single-platform binaries, the release matrix, lint, test, ad-hoc
// tool runs, clean, install and uninstall.
//
// Every flow is sequential. The execution mode is passed in by the caller
// and scoped locally where a flow needs a quieter one.
package build
