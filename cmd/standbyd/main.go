package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/cli"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// Only panics on the main goroutine reach here; worker tasks recover their own. Exit and let the supervisor restart us
			if logger.Log != nil {
				logger.Log.Error("Panic recovered", "panic", r, "stack", string(debug.Stack()))
			} else {
				fmt.Fprintf(os.Stderr, "Panic recovered: %v\n%s", r, debug.Stack())
			}
			os.Exit(2)
		}
	}()

	cli.Execute()
}

// Personal.AI order the ending
