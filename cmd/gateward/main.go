package main

import "github.com/mvolkov/gateward/internal/cli"

func main() {
	cli.Execute()
}
