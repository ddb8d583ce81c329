package main

import "source.quilibrium.com/quilibrium/monorepo/timelock/client/cmd"

func main() {
	cmd.Execute()
}
