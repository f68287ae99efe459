package main

import (
	"github.com/elyby/yggdrasil/cmd"
)

func main() {
	cmd.Execute()
}
