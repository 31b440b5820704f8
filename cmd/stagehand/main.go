package main

import "stagehand/internal/cmd"

func main() {
	cmd.Run()
}
