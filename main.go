package main

import "carprice/cmd"

func main() {
	cmd.Execute()
}
