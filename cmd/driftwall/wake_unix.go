//go:build !windows
// +build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyWake delivers SIGCONT, the closest portable signal to "the process
// resumed after a suspend".
func notifyWake(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGCONT)
}
