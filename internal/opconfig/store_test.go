package opconfig

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleDoc = `{
    "work_mode": "manual",
    "avatar_command": {"command": ""},
    "avatar_event": {"event": "", "type": "", "src": ""},
    "work_mode_response": {"result": "success", "reason": ""},
    "avatar_command_response": {"result": "success", "reason": ""},
    "server_host": "localhost",
    "server_port": 8765
}`

func writeTestDoc(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test doc: %v", err)
	}
	return path
}

// touch bumps the file's mtime far enough that the store sees a change even
// on filesystems with coarse timestamp resolution.
func touch(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("failed to bump mtime: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeTestDoc(t, t.TempDir(), sampleDoc)
	store := NewStore(path)

	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	doc := store.Document()
	if doc.WorkMode != ModeManual {
		t.Errorf("expected work_mode manual, got %q", doc.WorkMode)
	}
	if doc.ServerPort != 8765 {
		t.Errorf("expected server_port 8765, got %d", doc.ServerPort)
	}
}

func TestLoadCorruptKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeTestDoc(t, dir, sampleDoc)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	writeTestDoc(t, dir, "{not json")
	err := store.Load()
	if err == nil {
		t.Fatal("expected error for corrupt document")
	}
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Errorf("expected CorruptError, got %T", err)
	}

	// Previous in-memory document survives a failed reload.
	if store.Document().WorkMode != ModeManual {
		t.Errorf("expected previous document retained, got %+v", store.Document())
	}
}

func TestRefreshIfChanged(t *testing.T) {
	dir := t.TempDir()
	path := writeTestDoc(t, dir, sampleDoc)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	changed, err := store.RefreshIfChanged()
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if changed {
		t.Error("expected no change on untouched file")
	}

	updated := strings.Replace(sampleDoc, `"work_mode": "manual"`, `"work_mode": "auto"`, 1)
	writeTestDoc(t, dir, updated)
	touch(t, path)

	changed, err = store.RefreshIfChanged()
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if !changed {
		t.Fatal("expected change after rewrite")
	}
	if store.Document().WorkMode != ModeAuto {
		t.Errorf("expected work_mode auto after refresh, got %q", store.Document().WorkMode)
	}
}

func TestWriteAcknowledgementPreservesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	path := writeTestDoc(t, dir, sampleDoc)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// External edit the store has not observed yet.
	updated := strings.Replace(sampleDoc, `"work_mode": "manual"`, `"work_mode": "collaboration"`, 1)
	writeTestDoc(t, dir, updated)

	if err := store.WriteAcknowledgement(FieldWorkModeResponse, Response{Result: ResultSuccess}); err != nil {
		t.Fatalf("acknowledgement failed: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("written document is invalid JSON: %v", err)
	}
	if doc.WorkMode != ModeCollaboration {
		t.Errorf("external edit was clobbered: work_mode = %q", doc.WorkMode)
	}
	if doc.WorkModeResponse.Result != ResultSuccess {
		t.Errorf("expected success latch, got %q", doc.WorkModeResponse.Result)
	}
}

func TestSetAvatarCommandArmsLatch(t *testing.T) {
	path := writeTestDoc(t, t.TempDir(), sampleDoc)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if err := store.SetAvatarCommand(AvatarCommand{Command: CommandStop}); err != nil {
		t.Fatalf("set command failed: %v", err)
	}

	doc := store.Document()
	if doc.AvatarCommand.Command != CommandStop {
		t.Errorf("expected stop command, got %q", doc.AvatarCommand.Command)
	}
	if doc.AvatarCommandResponse.Result != ResultPending {
		t.Errorf("expected pending latch, got %q", doc.AvatarCommandResponse.Result)
	}
}

func TestSetAvatarEventRoundTrip(t *testing.T) {
	path := writeTestDoc(t, t.TempDir(), sampleDoc)
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	ev := AvatarEvent{Event: "finished", Type: "video", Src: "videos/slide-3.mp4"}
	if err := store.SetAvatarEvent(ev); err != nil {
		t.Fatalf("set event failed: %v", err)
	}

	// A second store reading the same file sees the event.
	other := NewStore(path)
	if err := other.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if other.Document().AvatarEvent != ev {
		t.Errorf("expected event %+v, got %+v", ev, other.Document().AvatarEvent)
	}
}
