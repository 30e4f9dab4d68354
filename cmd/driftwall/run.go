package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftwall/driftwall/util/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shuffler until interrupted",
	RunE:  runRun,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Shuffle the wallpaper once and exit",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched := a.newScheduler()
	states, cancel := sched.Subscribe()
	defer cancel()
	go func() {
		for state := range states {
			if state.Status != "" {
				log.Printf("status: %s", state.Status)
			}
		}
	}()

	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	wakeCh := make(chan os.Signal, 1)
	notifyWake(wakeCh)

	for {
		select {
		case <-wakeCh:
			// process resumed; the timer may have drifted through a sleep
			sched.HandleWake()
		case <-sigCh:
			sched.Stop()
			return nil
		}
	}
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched := a.newScheduler()
	sched.ShuffleNow()

	state := sched.State()
	if state.Status != "" {
		return fmt.Errorf("%s", state.Status)
	}
	cmd.Printf("wallpaper set from %s\n", state.CurrentSource)
	return nil
}
