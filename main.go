package main

import "notashelf.dev/flake-graph/cmd"

func main() {
	cmd.Execute()
}
