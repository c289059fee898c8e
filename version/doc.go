// Package version reports build information for the procinvoke binary.
//
// Version, commit, and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/procinvoke/version.Version=1.2.0"
//
// Missing values fall back to the VCS stamps embedded by the Go toolchain.
package version
