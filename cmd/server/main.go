package main // Entry point package

import "github.com/iliyamo/smart-zaiko/cmd/server/commands"

func main() {
	commands.Execute()
}
