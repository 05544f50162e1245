package main

import "github.com/palisade-http/palisade/cmd/palisade/cmd"

func main() {
	cmd.Execute()
}
