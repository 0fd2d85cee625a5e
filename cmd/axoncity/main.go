package main

import "github.com/raynbowy23/Axon-City-sub002/internal/cmd"

func main() {
	cmd.Execute()
}
