package main

import "github.com/browserpilot/browserpilot/cmd"

func main() {
	cmd.Execute()
}
