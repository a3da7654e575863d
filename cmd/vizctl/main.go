package main

import (
	"os"

	"vizcore/internal/vizctl"
)

func main() {
	vizctl.Execute(os.Args[1:])
}
