package main

import "hindsight/cmd"

func main() {
	cmd.Execute()
}
