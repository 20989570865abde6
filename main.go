package main

import "github.com/Tiliavir/ttt-timesheet/cmd"

func main() {
	cmd.Execute()
}
