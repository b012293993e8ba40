package main

import "github.com/dyike/StockSync/internal/cli"

func main() {
	cli.Run()
}
