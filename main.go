package main

import "github.com/lacag-app/lacag/cmd"

func main() {
	cmd.Execute()
}
