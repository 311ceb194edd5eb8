package main

import "github.com/pkgship-dev/pkgship/internal/cli"

func main() {
	cli.Execute()
}
