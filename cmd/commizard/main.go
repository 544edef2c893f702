package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/temirov/commizard/internal/cli"
	"github.com/temirov/commizard/internal/utils"
)

// main is the entry point for the commizard command.
func main() {
	level := utils.NewApplicationLevel()
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(level)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applicationExecutionError := cli.Execute(ctx, loggerInstance, level)
	if applicationExecutionError == nil {
		return
	}
	var exitErr cli.ExitError
	if errors.As(applicationExecutionError, &exitErr) {
		stop()
		_ = loggerInstance.Sync()
		os.Exit(exitErr.Code)
	}
	loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
}
