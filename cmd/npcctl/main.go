package main

import "github.com/charliek/npcctl/internal/cli"

func main() {
	cli.Execute()
}
