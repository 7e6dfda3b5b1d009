package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// Trap calls cancel once on the first SIGINT or SIGTERM.
func Trap(cancel func(os.Signal)) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		signal.Stop(c)
		cancel(sig)
	}()
}
