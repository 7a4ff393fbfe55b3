package main

import (
	"os"

	"stand/internal/stanctl"
)

func main() { os.Exit(stanctl.Main()) }
