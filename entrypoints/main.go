package main

import (
	"github.com/Laisky/laisky-cloud-drive/cmd"
)

func main() {
	cmd.Execute()
}
