package mqtt

import (
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/AvatarLink/internal/events"
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
)

const (
	TopicMode    = "avatar/mode"
	TopicCommand = "avatar/command"
	TopicStatus  = "avatar/status"
)

// Store is the slice of the config store the bridge writes to.
type Store interface {
	SetWorkMode(mode string) error
	SetAvatarCommand(cmd opconfig.AvatarCommand) error
}

// Bridge relays operator messages from MQTT topics into the config store,
// where the next reconcile pass picks them up like any other edit.
type Bridge struct {
	client *Client
	store  Store
}

// NewBridge creates a bridge over an existing client.
func NewBridge(client *Client, store Store) *Bridge {
	return &Bridge{client: client, store: store}
}

// Start connects and subscribes to the operator topics. Returns false when
// the broker is unreachable; the monitor runs fine without it.
func (b *Bridge) Start() bool {
	if err := b.client.Connect(); err != nil {
		events.Emit("warning", "system.error", "mqtt connect failed", map[string]interface{}{
			"broker": BrokerURL(),
			"error":  err.Error(),
		})
		return false
	}

	if err := b.client.Subscribe(TopicMode, b.handleMode); err != nil {
		events.Emit("error", "system.error", "mqtt subscribe failed", map[string]interface{}{
			"topic": TopicMode,
			"error": err.Error(),
		})
		return false
	}
	if err := b.client.Subscribe(TopicCommand, b.handleCommand); err != nil {
		events.Emit("error", "system.error", "mqtt subscribe failed", map[string]interface{}{
			"topic": TopicCommand,
			"error": err.Error(),
		})
		return false
	}

	return true
}

// modePayload accepts either a JSON object or a bare mode string.
type modePayload struct {
	WorkMode string `json:"work_mode"`
}

func (b *Bridge) handleMode(client paho.Client, msg paho.Message) {
	raw := strings.TrimSpace(string(msg.Payload()))

	var p modePayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil || p.WorkMode == "" {
		p.WorkMode = strings.Trim(raw, `"`)
	}

	switch p.WorkMode {
	case opconfig.ModeManual, opconfig.ModeCollaboration, opconfig.ModeAuto:
	default:
		events.Emit("warning", "operator.command", "rejected unknown work mode", map[string]interface{}{
			"topic":   msg.Topic(),
			"payload": raw,
		})
		return
	}

	if err := b.store.SetWorkMode(p.WorkMode); err != nil {
		events.Emit("error", "config.error", "failed to apply mode change", map[string]interface{}{
			"mode":  p.WorkMode,
			"error": err.Error(),
		})
		return
	}

	events.Emit("info", "operator.command", "work mode set over mqtt", map[string]interface{}{
		"mode": p.WorkMode,
	})
}

type commandPayload struct {
	Command string `json:"command"`
	Text    string `json:"text"`
}

func (b *Bridge) handleCommand(client paho.Client, msg paho.Message) {
	var p commandPayload
	if err := json.Unmarshal(msg.Payload(), &p); err != nil || p.Command == "" {
		events.Emit("warning", "operator.command", "rejected malformed command", map[string]interface{}{
			"topic":   msg.Topic(),
			"payload": truncate(string(msg.Payload()), 200),
		})
		return
	}

	cmd := opconfig.AvatarCommand{Command: p.Command, Text: p.Text}
	if err := b.store.SetAvatarCommand(cmd); err != nil {
		events.Emit("error", "config.error", "failed to apply command", map[string]interface{}{
			"command": p.Command,
			"error":   err.Error(),
		})
		return
	}

	events.Emit("info", "operator.command", "command set over mqtt", map[string]interface{}{
		"command": p.Command,
	})
}

// PublishStatus announces the monitor's current state on the status topic.
func (b *Bridge) PublishStatus(status interface{}) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return b.client.Publish(TopicStatus, payload)
}

// Connected reports broker connectivity.
func (b *Bridge) Connected() bool {
	return b.client.IsConnected()
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Disconnect()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
