//go:build windows
// +build windows

package main

import "os"

// notifyWake is a no-op on Windows; there is no resume signal to hook.
func notifyWake(ch chan<- os.Signal) {}
