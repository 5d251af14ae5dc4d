package main

import (
	"winbot/process"
	"winbot/process_linux"
)

func getSystem() process.System {
	return process_linux.New()
}
