// Package main is the posecap command line tool: it captures frames from a device through a
// configured pipeline, replays stored recordings and summarizes them.
package main

import (
	"context"

	"go.viam.com/utils"

	"go.viam.com/posecap/logging"
)

var logger = logging.NewLogger("posecap")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	return newApp(logger).RunContext(ctx, args)
}
