package main

import "github.com/bryanchriswhite/DeskSnap/cmd/desksnap/commands"

func main() {
	commands.Execute()
}
