package main

import (
	"os"

	"horse.fit/incident-integrator/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
