package main

import "github.com/ogulcanaydogan/budget-guardian/internal/cli"

func main() {
	cli.Execute()
}
