package main

import "github.com/RichardoC/pad-chat/internal/cli"

func main() {
	cli.Execute()
}
