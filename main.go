package main

import "github.com/Tiliavir/sheetboard/cmd"

func main() {
	cmd.Execute()
}
