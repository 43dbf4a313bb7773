package main

import (
	"log"

	"healflow/cmd"
)

func main() {
	// keep main tiny; cmd.Execute implements CLI and server bootstrap
	if err := cmd.Execute(); err != nil {
		log.Fatalf("healflow: %v", err)
	}
}
