package listener

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cellwarden/cellwarden/internal/event"
)

// queueSnapshot is the on-disk form of the listener queues. Persistence
// is best-effort: a lost or corrupt snapshot costs queued events, never
// availability.
type queueSnapshot struct {
	Incoming   []*event.Event `json:"incoming"`
	Processing []*event.Event `json:"processing"`
	ToSend     []*event.Event `json:"to_be_sent"`
	Paused     []*event.Event `json:"pause_buffer"`
}

// snapshotPath returns the snapshot file for this listener, or "" when
// persistence is disabled.
func (l *Listener) snapshotPath() string {
	if l.snapshotDir == "" {
		return ""
	}
	return filepath.Join(l.snapshotDir, l.name+".json")
}

// writeSnapshot persists the current queue contents. Errors are logged
// and swallowed.
func (l *Listener) writeSnapshot() {
	path := l.snapshotPath()
	if path == "" {
		return
	}

	snap := queueSnapshot{
		Incoming:   l.incoming.Snapshot(),
		Processing: l.processing.Snapshot(),
		ToSend:     l.toSend.Snapshot(),
		Paused:     l.pauseBuf.Snapshot(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		l.logger.Warn("Failed to encode queue snapshot", "error", err)
		return
	}

	if err := os.MkdirAll(l.snapshotDir, 0o755); err != nil {
		l.logger.Warn("Failed to create snapshot directory", "error", err)
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		l.logger.Warn("Failed to write queue snapshot", "error", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		l.logger.Warn("Failed to publish queue snapshot", "error", err)
	}
}

// loadSnapshot restores queue contents persisted by a previous run.
func (l *Listener) loadSnapshot() {
	path := l.snapshotPath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		l.logger.Warn("Failed to read queue snapshot", "error", err)
		return
	}

	var snap queueSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		l.logger.Warn("Ignoring corrupt queue snapshot", "path", path, "error", err)
		return
	}

	l.incoming.Replace(snap.Incoming)
	l.processing.Replace(snap.Processing)
	l.toSend.Replace(snap.ToSend)
	l.pauseBuf.Replace(snap.Paused)
	l.logger.Info("Queue snapshot restored",
		"incoming", len(snap.Incoming),
		"processing", len(snap.Processing),
		"to_be_sent", len(snap.ToSend))
}
