package main

import "insightwire/cmd"

func main() {
	cmd.Execute()
}
