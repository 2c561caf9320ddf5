package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// scene
	"scene.switched": {},
	"scene.error":    {},

	// operating config
	"config.reloaded":     {},
	"config.error":        {},
	"config.acknowledged": {},

	// presentation backend
	"deck.changed":        {},
	"page.changed":        {},
	"backend.unavailable": {},
	"backend.error":       {},

	// avatar
	"avatar.event":  {},
	"avatar.status": {},
	"mode.changed":  {},

	// playback tasks
	"task.broadcast": {},
	"asset.missing":  {},

	// clients
	"client.connected":       {},
	"client.disconnected":    {},
	"client.send_failed":     {},
	"client.message_invalid": {},

	// operator bridge
	"operator.command": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
