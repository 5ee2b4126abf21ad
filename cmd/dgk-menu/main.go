// Package main is the entry point for the dgk-menu command.
package main

import "github.com/kristyson/DGK-Restaurante/internal/cli"

func main() {
	cli.Execute()
}
