package main

import "github.com/KaramelBytes/autodash/cmd"

func main() {
	cmd.Execute()
}
