// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erikbeerepoot/bramble-sub001/internal/logger"
	"github.com/erikbeerepoot/bramble-sub001/pkg/pmu"
	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	simConfigFile     string
	simLogLevel       string
	simWakeInterval   uint32
	simGraceSeconds   uint32
	simStatusInterval int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated PMU on the link",
	Long: `Run a complete PMU endpoint on the link: protocol handler, watering
schedule, and boot/sleep/wake state machine, driven by the host's wall clock.

The simulator answers every Thorn command, fires scheduled wakes when the
clock reaches an enabled entry, performs periodic wakes at the configured
interval, emits wake notifications and status frames, and announces
SCHEDULE_COMPLETE before each simulated power-down.

An optional YAML config file (--config) may set link.port, link.baud,
pmu.wake_interval, pmu.grace_seconds, and pmu.status_interval; flags take
their defaults from it.

Useful for exercising controller firmware and the other bramble commands
without PMU hardware (pair two ends of a pty, or point it at a WebSocket).`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simConfigFile, "config", "", "YAML config file")
	simulateCmd.Flags().StringVar(&simLogLevel, "log-level", logger.InfoLevel, "Log level (debug, info, warn, error)")
	simulateCmd.Flags().Uint32Var(&simWakeInterval, "wake-interval", 3600, "Default periodic wake interval (seconds)")
	simulateCmd.Flags().Uint32Var(&simGraceSeconds, "grace", 30, "Grace period added to scheduled wakes (seconds)")
	simulateCmd.Flags().IntVar(&simStatusInterval, "status-interval", 10, "Status frame cadence while awake (seconds)")
}

// loadSimConfig reads the optional config file and folds its values into the
// flag variables. Flags set explicitly on the command line win.
func loadSimConfig(cmd *cobra.Command) error {
	if simConfigFile == "" {
		return nil
	}
	viper.SetConfigFile(simConfigFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %v", err)
	}

	if v := viper.GetString("link.port"); v != "" && !cmd.Flags().Changed("port") && !cmd.Root().PersistentFlags().Changed("port") {
		portName = v
	}
	if v := viper.GetInt("link.baud"); v != 0 && !cmd.Root().PersistentFlags().Changed("baud") {
		baudRate = v
	}
	if v := viper.GetUint32("pmu.wake_interval"); v != 0 && !cmd.Flags().Changed("wake-interval") {
		simWakeInterval = v
	}
	if v := viper.GetUint32("pmu.grace_seconds"); v != 0 && !cmd.Flags().Changed("grace") {
		simGraceSeconds = v
	}
	if v := viper.GetInt("pmu.status_interval"); v != 0 && !cmd.Flags().Changed("status-interval") {
		simStatusInterval = v
	}
	return nil
}

// simulator couples the protocol handler and state machine to the wall clock.
type simulator struct {
	handler *pmu.ProtocolHandler
	machine *pmu.StateMachine
	log     *logger.Logger

	wakeInterval uint32 // periodic cadence, seconds
	lastWakeEnd  time.Time
	lastStatus   time.Time

	// Set when the wake-reason frame for the current session still carries
	// the triggering entry.
	pendingReason thorn.WakeReason
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if err := loadSimConfig(cmd); err != nil {
		return err
	}
	log := logger.Get(simLogLevel)

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	start := time.Now()
	machine := pmu.NewStateMachine(func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	})
	machine.SetGracePeriod(simGraceSeconds * 1000)

	sim := &simulator{
		machine:      machine,
		log:          log,
		wakeInterval: simWakeInterval,
		lastWakeEnd:  start,
	}
	sim.handler = pmu.NewProtocolHandler(conn, simWakeInterval, pmu.Callbacks{
		SetWakeInterval: func(seconds uint32) {
			sim.wakeInterval = seconds
			log.Infow("wake interval changed", "seconds", seconds)
		},
		KeepAwake: func(seconds uint32) {
			machine.ExtendWake(seconds)
			log.Infow("keep-awake granted", "seconds", seconds)
		},
	})

	machine.SetObserver(func(s pmu.State) {
		log.Infow("state change", "state", s.String())
		if s == pmu.StateSleeping {
			sim.lastWakeEnd = time.Now()
			if err := sim.handler.SendScheduleComplete(); err != nil {
				log.Warnw("failed to send schedule complete", "err", err)
			}
		}
	})

	log.Infow("simulated PMU started",
		"connection", connInfo,
		"wake_interval", simWakeInterval,
		"grace_seconds", simGraceSeconds)

	// Reader goroutine feeds received chunks to the main loop so all handler
	// and machine access stays single-threaded.
	chunks := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				readErr <- err
				return
			}
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				chunks <- chunk
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Boot completes immediately; hardware self-test is out of scope here.
	if err := sim.handler.SendWakeNotification(thorn.WakeBoot, nil); err != nil {
		log.Warnw("failed to send boot notification", "err", err)
	}
	machine.ReportBootComplete()

	for {
		select {
		case <-quit:
			log.Infow("shutting down")
			return nil

		case err := <-readErr:
			if err == ErrConnectionClosed {
				log.Infow("connection closed")
				return nil
			}
			return fmt.Errorf("read failed: %v", err)

		case chunk := <-chunks:
			for _, b := range chunk {
				if err := sim.handler.ProcessReceivedByte(b); err != nil {
					log.Warnw("response write failed", "err", err)
				}
			}

		case <-ticker.C:
			sim.tick()
		}
	}
}

// tick advances the simulation: wake triggers while sleeping, notification
// and status emission while awake, session timeout via Update.
func (s *simulator) tick() {
	now := time.Now()

	if s.machine.State() == pmu.StateSleeping {
		s.maybeWake(now)
	}

	if !s.machine.Update() {
		return
	}

	if s.machine.ShouldSendWakeNotification() {
		var entryPtr *thorn.ScheduleEntry
		if entry, ok := s.machine.PendingEntry(); ok {
			entryPtr = &entry
		}
		if err := s.handler.SendWakeNotification(s.pendingReason, entryPtr); err != nil {
			s.log.Warnw("failed to send wake notification", "err", err)
			return
		}
		s.machine.MarkNotificationSent()
		s.log.Infow("wake notification sent", "reason", thorn.FormatWakeReason(s.pendingReason))
	}

	if simStatusInterval > 0 && now.Sub(s.lastStatus) >= time.Duration(simStatusInterval)*time.Second {
		s.lastStatus = now
		if err := s.handler.SendStatus(s.machine.State(), s.machine.ShouldSendWakeNotification()); err != nil {
			s.log.Warnw("failed to send status", "err", err)
		}
	}
}

// maybeWake checks the schedule and the periodic cadence against the wall
// clock and raises the corresponding wake event.
func (s *simulator) maybeWake(now time.Time) {
	day := uint8(now.Weekday()) // Sunday = 0, matching the day mask
	if slot, entry, ok := s.handler.NextScheduledEntry(day, uint8(now.Hour()), uint8(now.Minute())); ok {
		if entry.MinutesUntil(day, uint8(now.Hour()), uint8(now.Minute())) == 0 && now.Sub(s.lastWakeEnd) >= time.Minute {
			s.log.Infow("scheduled wake", "slot", slot, "entry", thorn.FormatScheduleEntry(entry))
			s.pendingReason = thorn.WakeScheduled
			s.machine.ReportScheduledWake(entry)
			return
		}
	}

	if now.Sub(s.lastWakeEnd) >= time.Duration(s.wakeInterval)*time.Second {
		s.log.Infow("periodic wake", "interval", s.wakeInterval)
		s.pendingReason = thorn.WakePeriodic
		s.machine.ReportPeriodicWake()
	}
}
