package main

import "github.com/gophys/goburgers/cmd"

func main() {
	cmd.Execute()
}
