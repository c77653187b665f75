package main

import "github.com/Rakshitha-Poola/Js-Tracker/internal/cli"

func main() {
	cli.Execute()
}
