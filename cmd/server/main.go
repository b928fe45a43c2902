package main

import "github.com/wemeetoffline/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
