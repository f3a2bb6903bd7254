package main

import "github.com/derickschaefer/emissions/cmd"

func main() {
	cmd.Execute()
}
