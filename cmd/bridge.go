// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/erikbeerepoot/bramble-sub001/internal/logger"
	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
)

var (
	bridgeBroker   string
	bridgeNodeID   string
	bridgeClientID string
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Republish PMU events to an MQTT broker",
	Long: `Bridge PMU events from the Thorn link to an MQTT broker.

Wake notifications, status frames, schedule completions, and NACKs are
decoded and republished as JSON under bramble/<node>/:

  bramble/<node>/wake      - wake notifications with reason and entry
  bramble/<node>/status    - PMU state and pending-notification flag
  bramble/<node>/complete  - schedule-complete (power-down imminent)
  bramble/<node>/nack      - rejected commands with error code

Other frames on the link are counted but not published.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeBroker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	bridgeCmd.Flags().StringVar(&bridgeNodeID, "node", "sub001", "Node id used in topic names")
	bridgeCmd.Flags().StringVar(&bridgeClientID, "client-id", "bramble-bridge", "MQTT client id")
}

// bridgePublisher publishes decoded PMU events to an MQTT broker.
type bridgePublisher struct {
	client paho.Client
	prefix string
}

func newBridgePublisher(broker, clientID, nodeID string) (*bridgePublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &bridgePublisher{
		client: client,
		prefix: "bramble/" + nodeID,
	}, nil
}

func (p *bridgePublisher) publish(subtopic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// QoS 1 (at-least-once): wake events drive downstream automation
	token := p.client.Publish(p.prefix+"/"+subtopic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *bridgePublisher) close() {
	p.client.Disconnect(1000) // 1 second timeout
}

// JSON payloads for the bridge topics.
type wakeEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason"`
	Entry     *scheduleEntry `json:"entry,omitempty"`
}

type scheduleEntry struct {
	Hour     uint8  `json:"hour"`
	Minute   uint8  `json:"minute"`
	Duration uint16 `json:"duration_s"`
	Days     string `json:"days"`
	Valve    uint8  `json:"valve"`
	Enabled  bool   `json:"enabled"`
}

type statusEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	State       string    `json:"state"`
	WakePending bool      `json:"wake_pending"`
}

type completeEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

type nackEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Error     string    `json:"error"`
}

func toScheduleEntry(e thorn.ScheduleEntry) *scheduleEntry {
	return &scheduleEntry{
		Hour:     e.Hour,
		Minute:   e.Minute,
		Duration: e.Duration,
		Days:     thorn.FormatDaysMask(e.DaysMask),
		Valve:    e.ValveID,
		Enabled:  e.Enabled,
	}
}

func runBridge(cmd *cobra.Command, args []string) error {
	log := logger.Get(logger.InfoLevel)

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	pub, err := newBridgePublisher(bridgeBroker, bridgeClientID, bridgeNodeID)
	if err != nil {
		return err
	}
	defer pub.close()

	log.Infow("bridge started",
		"connection", connInfo,
		"broker", bridgeBroker,
		"topic_prefix", "bramble/"+bridgeNodeID)

	parser := thorn.NewParser()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Infow("connection closed")
				return nil
			}
			log.Warnw("read error", "err", err)
			continue
		}

		for i := 0; i < n; i++ {
			if !parser.ProcessByte(buf[i]) {
				continue
			}
			frame := parser.Frame()
			parser.Reset()

			if err := publishFrame(pub, frame); err != nil {
				log.Warnw("publish failed", "code", thorn.FormatCode(frame.Code), "err", err)
			}
		}
	}
}

// publishFrame maps one decoded frame to its bridge topic, if it has one.
func publishFrame(pub *bridgePublisher, f thorn.Frame) error {
	switch f.Code {
	case thorn.RespWakeReason:
		if len(f.Data) < 1 {
			return nil
		}
		event := wakeEvent{
			Timestamp: f.Timestamp,
			Reason:    thorn.FormatWakeReason(thorn.WakeReason(f.Data[0])),
		}
		if len(f.Data) >= 1+thorn.EntryWireSize {
			if entry, err := thorn.DecodeScheduleEntry(f.Data[1:]); err == nil {
				event.Entry = toScheduleEntry(entry)
			}
		}
		return pub.publish("wake", event)

	case thorn.RespStatus:
		if len(f.Data) < 2 {
			return nil
		}
		return pub.publish("status", statusEvent{
			Timestamp:   f.Timestamp,
			State:       formatStateByte(f.Data[0]),
			WakePending: f.Data[1] != 0,
		})

	case thorn.RespScheduleComplete:
		return pub.publish("complete", completeEvent{Timestamp: f.Timestamp})

	case thorn.RespNack:
		if len(f.Data) < 2 {
			return nil
		}
		return pub.publish("nack", nackEvent{
			Timestamp: f.Timestamp,
			Command:   thorn.FormatCode(f.Data[0]),
			Error:     thorn.FormatErrorCode(thorn.ErrorCode(f.Data[1])),
		})
	}
	return nil
}

// formatStateByte names a wire-encoded PMU state without importing the full
// state machine semantics into the bridge.
func formatStateByte(b uint8) string {
	states := []string{"BOOTING", "SLEEPING", "SCHEDULED_WAKE", "PERIODIC_WAKE", "ERROR"}
	if int(b) < len(states) {
		return states[b]
	}
	return "UNKNOWN"
}
