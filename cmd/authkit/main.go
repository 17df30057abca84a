package main

import "github.com/clearpath-immigration/authkit/cmd/authkit/cmd"

func main() {
	cmd.Execute()
}
