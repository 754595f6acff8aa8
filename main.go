package main

import "github.com/cbg-ethz/cojac/cmd"

func main() {
	cmd.Execute() // initialize cobra commands
}
