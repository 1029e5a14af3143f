package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pwtools/pwrun/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "pwrun crashed: %v\n", r)
			if os.Getenv("PW_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
