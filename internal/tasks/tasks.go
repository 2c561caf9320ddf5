// Package tasks defines the playback instructions broadcast to avatar clients.
package tasks

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the task variant on the wire.
type Kind string

const (
	KindText     Kind = "text"
	KindPlaylist Kind = "playlist"
	KindPlay     Kind = "play"
	KindPause    Kind = "pause"
	KindStop     Kind = "stop"
)

// Loop counts for playlist entries.
const (
	LoopOnce    = 1
	LoopForever = -1
)

// Entry is a single video in a playlist. Order is significant: the one-shot
// slide video precedes the looping idle video.
type Entry struct {
	Video string `json:"video"`
	Loop  int    `json:"loop"`
}

// Task is a tagged playback instruction. Only the fields relevant to the
// Kind are populated.
type Task struct {
	Kind     Kind
	Text     string
	Duration int
	Playlist []Entry
}

// Text creates a text announcement shown for the given number of seconds.
func Text(text string, duration int) Task {
	return Task{Kind: KindText, Text: text, Duration: duration}
}

// Playlist creates a playlist task. An empty playlist stops playback.
func Playlist(entries ...Entry) Task {
	return Task{Kind: KindPlaylist, Playlist: entries}
}

// Play resumes paused playback.
func Play() Task { return Task{Kind: KindPlay} }

// Pause pauses playback.
func Pause() Task { return Task{Kind: KindPause} }

// Stop stops playback.
func Stop() Task { return Task{Kind: KindStop} }

type textPayload struct {
	Tasks    string `json:"tasks"`
	Text     string `json:"text"`
	Duration int    `json:"duration"`
}

type playlistPayload struct {
	Tasks    string  `json:"tasks"`
	Playlist []Entry `json:"playlist"`
}

type controlPayload struct {
	Tasks string `json:"tasks"`
}

// Encode serializes the task into its wire representation.
func (t Task) Encode() ([]byte, error) {
	switch t.Kind {
	case KindText:
		return json.Marshal(textPayload{Tasks: string(t.Kind), Text: t.Text, Duration: t.Duration})
	case KindPlaylist:
		entries := t.Playlist
		if entries == nil {
			entries = []Entry{}
		}
		return json.Marshal(playlistPayload{Tasks: string(t.Kind), Playlist: entries})
	case KindPlay, KindPause, KindStop:
		return json.Marshal(controlPayload{Tasks: string(t.Kind)})
	default:
		return nil, fmt.Errorf("unknown task kind: %q", t.Kind)
	}
}
