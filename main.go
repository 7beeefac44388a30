package main

import (
	"shorturl/cmd"
	_ "shorturl/cmd/cli"    // registers the create, stats, cleanup and migrate commands
	_ "shorturl/cmd/server" // registers the run-server command
)

func main() {
	cmd.Execute()
}
