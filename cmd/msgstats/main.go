package main

import "github.com/jasperwreed/msgstats/internal/cli"

func main() {
	cli.Execute()
}
