package main

import "github.com/notargets/goice/cmd"

func main() {
	cmd.Execute()
}
