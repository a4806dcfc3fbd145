//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals sends SIGINT and SIGTERM to ch.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
