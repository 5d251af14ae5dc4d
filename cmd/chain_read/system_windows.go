package main

import (
	"winbot/process"
	"winbot/process_windows"
)

func getSystem() process.System {
	return process_windows.New()
}
