// Package main is the entry point for the shelfwise application
package main

import (
	"github.com/retailops/shelfwise/cmd"
)

func main() {
	cmd.Execute()
}
