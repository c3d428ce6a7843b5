package service

import (
	"os"
	"os/signal"
	"syscall"
)

// App is a long-running process with a managed lifecycle.
type App interface {
	Init() error
	Start() error
	Stop() error
}

// Run drives an App: Init, Start, then block until SIGINT/SIGTERM and Stop.
func Run(app App) error {
	if err := app.Init(); err != nil {
		return err
	}

	if err := app.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return app.Stop()
}
