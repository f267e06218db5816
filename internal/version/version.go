// Package version exposes the module version recorded in artefacts.
package version

// Version is the salvo release version stamped into recorded traces.
const Version = "0.4.0"
