package main

import (
	"os"

	"github.com/kristi80/Datakomm-prosjekt-2022/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
