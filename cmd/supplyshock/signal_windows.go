//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals sends interrupts to ch. Windows has no SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
