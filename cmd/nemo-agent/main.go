package main

import "github.com/truemagic-coder/nemo-agent/cli"

func main() {
	cli.Execute()
}
