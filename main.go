package main

import "github.com/mselser95/sports-arb/cmd"

func main() {
	cmd.Execute()
}
