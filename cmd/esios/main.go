package main

import "github.com/colthorp/esios-cli-go/internal/cli"

func main() {
	cli.Execute()
}
