package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/stagehand/pkg/errors"
	"github.com/arthur-debert/stagehand/pkg/style"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, style.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))

		// Exit 2 distinguishes a fail-slow run that recorded failures
		// from a fatal abort (exit 1).
		if errors.IsErrorCode(err, errors.ErrAggregatedFailures) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
