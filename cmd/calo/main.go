package main

import "github.com/jwulff/calo/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
