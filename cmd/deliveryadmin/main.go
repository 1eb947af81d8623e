package main

import "fooddelivery/cmd/deliveryadmin/commands"

func main() {
	commands.Execute()
}
