package main

import "apt-mirror/internal/cli"

func main() {
	cli.Execute()
}
