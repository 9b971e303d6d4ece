// Package main is the entry point for the fppgen CLI.
package main

import "fppgen.dev/pkg/fppgen/cmd"

func main() {
	cmd.Execute()
}
