package main

import "mipgate/cmd"

func main() {
	cmd.Execute()
}
