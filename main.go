package main

import "github.com/naka-gawa/github-opened/cmd"

func main() {
	cmd.Execute()
}
