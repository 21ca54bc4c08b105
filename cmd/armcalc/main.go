package main

import "github.com/armcoincrypto/Armcalc/internal/cli"

func main() {
	cli.Execute()
}
