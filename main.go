package main

import "github.com/meshwatch/meshwatch/cmd"

func main() {
	cmd.Execute()
}
