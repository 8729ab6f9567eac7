//go:build release
// +build release

package website

const (
	// DEBUG is whether this is a debug build
	DEBUG = false
)
