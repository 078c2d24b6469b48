// Package file persists application state as one JSON file per key inside a
// data directory. It is the local analog of the browser client's key-value
// storage: every load tolerates missing or corrupt data by falling back to
// zero values.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/repository"
	"obsidian-chat/internal/infra/security"
)

var _ repository.StateRepository = (*StateRepo)(nil)

const (
	sessionsFile   = "sessions.json"
	prefsFile      = "prefs.json"
	timestampsFile = "timestamps.json"
	devModeFile    = "dev_mode"
)

type StateRepo struct {
	dir string
	enc *security.EncryptionService // nil means sessions are stored in the clear
	log *zerolog.Logger
}

// NewStateRepo creates the data directory if needed. When enc is non-nil the
// sessions blob is encrypted at rest; prefs and timestamps stay plain.
func NewStateRepo(dir string, enc *security.EncryptionService, log *zerolog.Logger) (*StateRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &StateRepo{dir: dir, enc: enc, log: log}, nil
}

func (r *StateRepo) SaveSessions(ctx context.Context, sessions []*model.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	if r.enc != nil {
		if data, err = r.enc.Encrypt(data); err != nil {
			return err
		}
	}
	return r.writeAtomic(sessionsFile, data)
}

func (r *StateRepo) LoadSessions(ctx context.Context) []*model.Session {
	data, err := os.ReadFile(filepath.Join(r.dir, sessionsFile))
	if err != nil {
		return nil
	}
	if r.enc != nil {
		if pt, err := r.enc.Decrypt(data); err == nil {
			data = pt
		}
		// fall through: the file may predate encryption and still be plain JSON
	}
	var sessions []*model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		r.log.Warn().Err(err).Msg("discarding corrupt sessions file")
		return nil
	}
	for _, s := range sessions {
		s.Mode = model.NormalizeMode(s.Mode)
	}
	return sessions
}

func (r *StateRepo) SavePrefs(ctx context.Context, prefs repository.Prefs) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return r.writeAtomic(prefsFile, data)
}

func (r *StateRepo) LoadPrefs(ctx context.Context) repository.Prefs {
	prefs := repository.Prefs{DefaultMode: model.ModeLite}
	data, err := os.ReadFile(filepath.Join(r.dir, prefsFile))
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		r.log.Warn().Err(err).Msg("discarding corrupt prefs file")
		return repository.Prefs{DefaultMode: model.ModeLite}
	}
	prefs.DefaultMode = model.NormalizeMode(prefs.DefaultMode)
	return prefs
}

func (r *StateRepo) SaveTimestamps(ctx context.Context, stamps []int64) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}
	return r.writeAtomic(timestampsFile, data)
}

func (r *StateRepo) LoadTimestamps(ctx context.Context) []int64 {
	data, err := os.ReadFile(filepath.Join(r.dir, timestampsFile))
	if err != nil {
		return nil
	}
	var stamps []int64
	if err := json.Unmarshal(data, &stamps); err != nil {
		return nil
	}
	return stamps
}

// DevMode is flipped by writing "true" into the dev_mode file by hand; it is
// deliberately unreachable through the application surface.
func (r *StateRepo) DevMode(ctx context.Context) bool {
	data, err := os.ReadFile(filepath.Join(r.dir, devModeFile))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "true"
}

// writeAtomic writes via a temp file plus rename so a crash mid-write never
// leaves a truncated record behind.
func (r *StateRepo) writeAtomic(name string, data []byte) error {
	path := filepath.Join(r.dir, name)
	tmp, err := os.CreateTemp(r.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
