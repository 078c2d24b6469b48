package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"obsidian-chat/internal/domain/model"
	"obsidian-chat/internal/domain/ports/repository"
)

var _ repository.StateRepository = (*StateRepo)(nil)

// StateRepo keeps the session list and flags in Redis, one JSON value per
// key. Entries never expire; this backend exists for setups where the data
// directory is not writable or state should outlive the host.
type StateRepo struct {
	client Client
	prefix string
	log    *zerolog.Logger
}

func NewStateRepo(client Client, prefix string, log *zerolog.Logger) *StateRepo {
	return &StateRepo{client: client, prefix: prefix, log: log}
}

func (s *StateRepo) key(name string) string {
	return s.prefix + ":" + name
}

func (s *StateRepo) SaveSessions(ctx context.Context, sessions []*model.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key("sessions"), data, 0)
}

func (s *StateRepo) LoadSessions(ctx context.Context) []*model.Session {
	data, err := s.client.Get(ctx, s.key("sessions"))
	if err != nil {
		return nil
	}
	var sessions []*model.Session
	if err := json.Unmarshal([]byte(data), &sessions); err != nil {
		s.log.Warn().Err(err).Msg("discarding corrupt sessions key")
		return nil
	}
	for _, sess := range sessions {
		sess.Mode = model.NormalizeMode(sess.Mode)
	}
	return sessions
}

func (s *StateRepo) SavePrefs(ctx context.Context, prefs repository.Prefs) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key("prefs"), data, 0)
}

func (s *StateRepo) LoadPrefs(ctx context.Context) repository.Prefs {
	prefs := repository.Prefs{DefaultMode: model.ModeLite}
	data, err := s.client.Get(ctx, s.key("prefs"))
	if err != nil {
		return prefs
	}
	if err := json.Unmarshal([]byte(data), &prefs); err != nil {
		s.log.Warn().Err(err).Msg("discarding corrupt prefs key")
		return repository.Prefs{DefaultMode: model.ModeLite}
	}
	prefs.DefaultMode = model.NormalizeMode(prefs.DefaultMode)
	return prefs
}

func (s *StateRepo) SaveTimestamps(ctx context.Context, stamps []int64) error {
	data, err := json.Marshal(stamps)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key("timestamps"), data, 0)
}

func (s *StateRepo) LoadTimestamps(ctx context.Context) []int64 {
	data, err := s.client.Get(ctx, s.key("timestamps"))
	if err != nil {
		return nil
	}
	var stamps []int64
	if err := json.Unmarshal([]byte(data), &stamps); err != nil {
		return nil
	}
	return stamps
}

// DevMode reads the out-of-band override key; set it with redis-cli, never
// through the API.
func (s *StateRepo) DevMode(ctx context.Context) bool {
	data, err := s.client.Get(ctx, s.key("dev_mode"))
	if err != nil {
		return false
	}
	return strings.TrimSpace(data) == "true"
}
