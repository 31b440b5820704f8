// Package state persists the provisioned forum setup: communities, bots,
// the persona-to-bot mapping and bot tokens. The file is versioned and
// validated on load; schema drift fails fast instead of silently defaulting.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"stagehand/internal/config"
	"stagehand/internal/core"
)

const SchemaVersion = 1

type Community struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	InviteCode string `json:"invite_code"`
	Password   string `json:"password,omitempty"`
}

type Bot struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Email         string `json:"email"`
	CommunityID   string `json:"community_id"`
	CommunitySlug string `json:"community_slug"`
}

// File is the on-disk shape of the forum state.
type File struct {
	Version     int                  `json:"version"`
	Communities map[string]Community `json:"communities"`
	Bots        map[string]Bot       `json:"bots"`
	Accounts    map[string]string    `json:"account_mapping"` // persona name -> bot id
	BotTokens   map[string]string    `json:"bot_tokens"`      // bot id -> access token
}

func emptyFile() File {
	return File{
		Version:     SchemaVersion,
		Communities: map[string]Community{},
		Bots:        map[string]Bot{},
		Accounts:    map[string]string{},
		BotTokens:   map[string]string{},
	}
}

func (f *File) validate() error {
	if f.Version != SchemaVersion {
		return fmt.Errorf("unsupported state schema version %d, want %d", f.Version, SchemaVersion)
	}
	for key, bot := range f.Bots {
		if bot.ID == "" || bot.DisplayName == "" {
			return fmt.Errorf("bot %q: missing required fields", key)
		}
	}
	for key, comm := range f.Communities {
		if comm.ID == "" || comm.Slug == "" {
			return fmt.Errorf("community %q: missing required fields", key)
		}
	}
	return nil
}

// Store loads the state file on Init and answers identity lookups for the
// dispatch loop. A missing file is not an error: the store starts empty so
// the setup command can populate it.
type Store struct {
	Logger *slog.Logger
	Config *config.Config

	path string
	file File
}

func (s *Store) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "state.Store")
	s.path = s.Config.StateFile
	s.file = emptyFile()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.Logger.Debug("no state file yet", "path", s.path)
		return nil
	}
	if err != nil {
		return err
	}

	return s.load(raw)
}

func (s *Store) load(raw []byte) error {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parsing state file: %w", err)
	}
	if err := f.validate(); err != nil {
		return fmt.Errorf("state file %s: %w", s.path, err)
	}
	s.file = f
	return nil
}

// Save writes the state file atomically enough for a single-process tool.
func (s *Store) Save() error {
	raw, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

// HasBots reports whether setup has run; the dispatch commands refuse to
// start without bots.
func (s *Store) HasBots() bool {
	return len(s.file.Bots) > 0
}

func (s *Store) Communities() map[string]Community {
	return s.file.Communities
}

func (s *Store) Bots() map[string]Bot {
	return s.file.Bots
}

func (s *Store) HasCommunity(key string) bool {
	_, ok := s.file.Communities[key]
	return ok
}

// PutCommunity records a freshly created community.
func (s *Store) PutCommunity(key string, c Community) {
	s.file.Communities[key] = c
}

// PutBot records a freshly created bot, its persona mapping and its token.
func (s *Store) PutBot(key string, b Bot, token string) {
	s.file.Bots[key] = b
	s.file.Accounts[b.DisplayName] = b.ID
	if token != "" {
		s.file.BotTokens[b.ID] = token
	}
}

// BotFor implements core.Directory.
func (s *Store) BotFor(account string) (core.BotCredential, error) {
	id, ok := s.file.Accounts[account]
	if !ok {
		return core.BotCredential{}, fmt.Errorf("%w: %q", core.ErrUnknownAccount, account)
	}
	token, ok := s.file.BotTokens[id]
	if !ok {
		return core.BotCredential{}, fmt.Errorf("%w: %q", core.ErrMissingCredential, account)
	}
	return core.BotCredential{ID: id, Token: token}, nil
}

// CommunityFor implements core.Directory: the fallback community slug for a
// record that doesn't name one.
func (s *Store) CommunityFor(botID string) (string, error) {
	for _, bot := range s.file.Bots {
		if bot.ID == botID && bot.CommunitySlug != "" {
			return bot.CommunitySlug, nil
		}
	}
	return "", fmt.Errorf("%w: no community for bot %q", core.ErrUnknownAccount, botID)
}
