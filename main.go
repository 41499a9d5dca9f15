package main

import (
	"os"

	"github.com/teamwerk/akquise-pilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
