package main

import "github.com/ja2ui0/highball/internal/cli"

func main() {
	cli.Execute()
}
