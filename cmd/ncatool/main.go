package main

import (
	"github.com/jakcron/NXTools/internal/cmd"
)

func main() {
	cmd.Execute()
}
