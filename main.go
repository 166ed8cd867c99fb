package main

import "github.com/notargets/mpturb/cmd"

func main() {
	cmd.Execute()
}
