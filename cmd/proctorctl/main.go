package main

import (
	"os"

	"ProctorGuard/cmd/proctorctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
