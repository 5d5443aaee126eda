// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntor/libscout/cmd/libscout/commands"
	"github.com/vulntor/libscout/pkg/pipeline"
)

// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Missing or conflicting input (manifest, corpus, target root, existing output)
//   - 130: Interrupted
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !commands.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(pipeline.ExitCode(err))
	}
}
