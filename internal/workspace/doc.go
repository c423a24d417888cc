// Package workspace manages the staging directory a build writes into.
//
// A staging directory is created next to the final output directory (same
// parent, so promotion is a rename on one filesystem). A successful build
// promotes it over the output; a failed build removes it and leaves the
// previous output untouched.
package workspace
