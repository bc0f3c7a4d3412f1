//go:build tools
// +build tools

// Package main tracks tool dependencies invoked via go generate.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
