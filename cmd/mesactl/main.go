package main

import "mesa/internal/cli/cmd"

func main() {
	cmd.Execute()
}
