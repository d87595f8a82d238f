// Package main pinboard 命令行入口.
package main

import (
	"os"

	"github.com/yeisme/pinboard/pkg/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
