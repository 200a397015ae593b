package main

import "github.com/eluv-io/atomic-go/cmd/flagcheck/commands"

func main() {
	commands.Execute()
}
