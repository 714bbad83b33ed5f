package main

import (
	"log"

	"github.com/relaygate/slackbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
