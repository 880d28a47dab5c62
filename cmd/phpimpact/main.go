// Package main is the entry point for the phpimpact CLI tool.
package main

import (
	"github.com/hargabyte/phpimpact/internal/cmd"
)

func main() {
	cmd.Execute()
}
