// Command memoize drives a cached, deliberately slow remote lookup in a loop
// and reports how the cache absorbs it.
//
//	memoize run --interval 100ms --delay 1s --listen :9464
package main

import (
	"context"
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(realMain(context.Background(), os.Args))
}

func realMain(ctx context.Context, args []string) int {
	if err := newApp(run).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
