package main

import (
	"log"

	"github.com/hireflow/interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
