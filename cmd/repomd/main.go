package main

import "github.com/djcass44/go-repomd/cmd"

var version = "development"

func main() {
	cmd.Execute(version)
}
