package reconcile

import (
	"github.com/AaronLay10/AvatarLink/internal/opconfig"
	"github.com/AaronLay10/AvatarLink/internal/tasks"
)

// AvatarStatus is the loop's view of what the renderer is doing right now.
// It is process-local and rebuilt from reported events and issued commands.
type AvatarStatus string

const (
	StatusIdle    AvatarStatus = "idle"
	StatusPlaying AvatarStatus = "playing"
	StatusPause   AvatarStatus = "pause"
	StatusUnknown AvatarStatus = "unknown"
)

// Playback lifecycle values reported by renderers.
const (
	eventStarted  = "started"
	eventFinished = "finished"
	typeVideo     = "video"
)

// Duration in seconds for announcement text overlays.
const defaultTextDuration = 3

// classifyEvent maps a reported playback event onto an avatar status.
// Starting the idle video counts as idle, starting anything else as
// playing.
func classifyEvent(ev opconfig.AvatarEvent, idleSrc string) AvatarStatus {
	switch {
	case ev.Event == eventStarted && ev.Type == typeVideo && idleSrc != "" && ev.Src == idleSrc:
		return StatusIdle
	case ev.Event == eventStarted && ev.Type == typeVideo:
		return StatusPlaying
	case ev.Event == eventFinished:
		return StatusIdle
	default:
		return StatusUnknown
	}
}

// pagePlaylist builds the standard two-entry playlist: the slide's video
// once, then the idle video forever. Missing assets are skipped; ok is
// false when neither resolved.
func pagePlaylist(slide, idle string) (tasks.Task, bool) {
	var entries []tasks.Entry
	if slide != "" {
		entries = append(entries, tasks.Entry{Video: slide, Loop: tasks.LoopOnce})
	}
	if idle != "" {
		entries = append(entries, tasks.Entry{Video: idle, Loop: tasks.LoopForever})
	}
	if len(entries) == 0 {
		return tasks.Task{}, false
	}
	return tasks.Playlist(entries...), true
}

// idlePlaylist builds a playlist holding only the looping idle video. An
// empty playlist is still meaningful: it stops whatever is playing.
func idlePlaylist(idle string) tasks.Task {
	if idle == "" {
		return tasks.Playlist()
	}
	return tasks.Playlist(tasks.Entry{Video: idle, Loop: tasks.LoopForever})
}

// modeTasks translates an unacknowledged work-mode change into tasks. The
// announcement always comes first. advance reports whether the deck should
// move to the next page after the tasks go out.
func modeTasks(mode string, status AvatarStatus, idle string) (list []tasks.Task, advance bool) {
	list = append(list, tasks.Text(mode, defaultTextDuration))

	switch mode {
	case opconfig.ModeManual:
		list = append(list, tasks.Playlist())
	case opconfig.ModeCollaboration:
		list = append(list, idlePlaylist(idle))
	case opconfig.ModeAuto:
		advance = status != StatusPlaying
	}

	return list, advance
}

// commandTasks translates an unacknowledged avatar command into tasks and
// the status that results from issuing them. Unrecognized commands fall
// back to replaying the current page.
func commandTasks(cmd opconfig.AvatarCommand, status AvatarStatus, slide, idle string) ([]tasks.Task, AvatarStatus) {
	switch cmd.Command {
	case opconfig.CommandPlayPause:
		switch status {
		case StatusPlaying:
			return []tasks.Task{tasks.Pause()}, StatusPause
		case StatusPause:
			return []tasks.Task{tasks.Play()}, StatusPlaying
		}

	case opconfig.CommandStop:
		return []tasks.Task{idlePlaylist(idle)}, StatusIdle

	case opconfig.CommandText:
		return []tasks.Task{tasks.Text(cmd.Text, defaultTextDuration)}, status
	}

	// play/pause from a non-playback state, or an unknown command:
	// replay the current page.
	if t, ok := pagePlaylist(slide, idle); ok {
		return []tasks.Task{t}, StatusPlaying
	}
	return nil, status
}
