//go:build !release
// +build !release

package main

const (
	DEBUG                   = true
	SecretsPath             = "secrets-debug.json"
	MaxDBconnectionPoolSize = 10
	DefaultStationName      = "Plzeň hl.n."
)
