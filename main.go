package main

import "github.com/akyaiy/verusgate/cmd"

func main() {
	cmd.Execute()
}
