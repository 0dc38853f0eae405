package main

import "github.com/cyberforge/cyberforge/cmd"

func main() {
	cmd.Execute()
}
