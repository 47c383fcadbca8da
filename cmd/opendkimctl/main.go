package main

import (
	"github.com/milterops/opendkimctl/cmd/opendkimctl/commands"
)

func main() {
	commands.Execute()
}
