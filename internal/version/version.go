// Package version identifies the gt-audit build and checks for released
// updates.
package version

// Version is the gt-audit release version.
const Version = "0.1.0"
