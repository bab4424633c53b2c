package main

import "github.com/chazu/lathe/cmd/lathe/internal/command"

func main() {
	command.Execute()
}
