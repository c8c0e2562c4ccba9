package main

import (
	"github.com/Laisky/laisky-doc-registry/cmd"
)

func main() {
	cmd.Execute()
}
