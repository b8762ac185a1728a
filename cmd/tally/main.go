package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tally/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "tally:", err)
			if errors.Is(err, store.ErrSchemaMismatch) {
				fmt.Fprintln(os.Stderr, "the shared database was created by a different tally build; upgrade every process in the fleet together")
			}
		}
		os.Exit(1)
	}
}
