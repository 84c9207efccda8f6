package main

import (
	"log"

	"github.com/ca-srg/elseql/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
