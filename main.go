package main

import "github.com/KaramelBytes/quickternary-cli/cmd"

func main() {
	cmd.Execute()
}
