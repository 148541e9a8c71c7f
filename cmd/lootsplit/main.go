package main

import "github.com/susu3304/lootsplit/internal/cli"

func main() {
	cli.Execute()
}
