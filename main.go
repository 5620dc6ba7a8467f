package main

import (
	"os"

	"github.com/firefly-engineering/agent-deploy/cmd"
	"github.com/firefly-engineering/agent-deploy/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
