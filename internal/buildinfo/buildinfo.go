// Package buildinfo carries the version stamped into the binary so the
// CLI and the API report the same identity.
package buildinfo

// Version is overridden at build time via ldflags.
var Version = "dev"
