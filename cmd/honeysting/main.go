package main

import (
	"errors"
	"os"

	"github.com/honeysting/honeysting/internal/cmd"
	"github.com/honeysting/honeysting/internal/cursor"
	"github.com/honeysting/honeysting/internal/logreader"
)

// Exit codes, so schedulers can tell the outcomes apart:
//
//	0 success (including "log had no new data")
//	1 run failed
//	3 another ingestion run holds the lock
//	4 log truncated and no reset policy configured
func main() {
	err := cmd.Execute()
	switch {
	case err == nil:
	case errors.Is(err, cursor.ErrLockHeld):
		os.Exit(3)
	case errors.Is(err, logreader.ErrLogTruncated):
		os.Exit(4)
	default:
		os.Exit(1)
	}
}
