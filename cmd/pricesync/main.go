package main

import "pricesync/internal/cli"

func main() {
	cli.Execute()
}
