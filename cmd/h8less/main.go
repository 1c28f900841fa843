package main

import "github.com/forPelevin/h8less/internal/cli"

func main() {
	cli.Main()
}
