// Package util holds small helpers shared by the process package and the CLI:
// pointer helpers for optional policy fields, size parsing for working-set
// limits, and environment/secret formatting.
package util
