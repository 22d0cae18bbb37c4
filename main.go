package main

import (
	"os"

	"tidereport/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args[1:]))
}
