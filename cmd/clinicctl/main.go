package main

import "github.com/medrex/clinic-portal/internal/cli"

func main() {
	cli.Execute()
}
