package main

import "socialsim/pkg/cli"

func main() {
	cli.Execute()
}
