// Package build turns frozen registry settings into a site.
//
// A Generator runs a fixed sequence of stages against a staging directory
// that sits next to the output directory:
//
//	validate -> prepare_output -> copy_passthrough -> load_layouts ->
//	collect_pages -> build_collections -> check_links -> write_pages
//
// Only when every stage succeeds (warnings allowed) is the staging directory
// promoted to the output path. Any fatal error or cancellation discards the
// staging directory and leaves the previous output untouched.
package build
