package main

import (
	"github.com/astromechza/bloog/cmd"
)

func main() {
	cmd.Execute()
}
