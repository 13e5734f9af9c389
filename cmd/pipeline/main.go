package main

import (
	"os"

	"github.com/initial69/Automatic-Pipeline/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
