package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/StudyRoom/internal/config"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/dkeye/StudyRoom/internal/storage/badger"
	"github.com/dkeye/StudyRoom/internal/storage/memory"
	"github.com/dkeye/StudyRoom/internal/storage/sqlite"
	"github.com/dkeye/StudyRoom/internal/storage/valkey"
)

type stores struct {
	directory     *sqlite.Directory
	schedule      *sqlite.ScheduleStore
	participation *sqlite.ParticipationStore
	kicks         core.KickStore
	chat          core.ChatLog

	closers []func() error
}

// openStores opens the catalog database and the configured chat and kick
// backends.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := sqlite.Open(ctx, cfg.Storage.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cfg.Storage.SQLiteDSN, err)
	}
	st := &stores{
		directory:     sqlite.NewDirectory(db),
		schedule:      sqlite.NewScheduleStore(db),
		participation: sqlite.NewParticipationStore(db),
		closers:       []func() error{db.Close},
	}

	if err := st.openChat(cfg.Storage, db); err != nil {
		st.Close()
		return nil, err
	}
	if err := st.openKicks(cfg.Storage, db); err != nil {
		st.Close()
		return nil, err
	}
	log.Info().Str("module", "storage").Str("sqlite", cfg.Storage.SQLiteDSN).
		Str("chat", cfg.Storage.ChatDriver).Str("kicks", cfg.Storage.KickDriver).Msg("stores opened")
	return st, nil
}

func (st *stores) openChat(cfg config.Storage, db *sql.DB) error {
	switch cfg.ChatDriver {
	case "badger":
		bdb, err := badger.Open(cfg.BadgerPath)
		if err != nil {
			return fmt.Errorf("open badger %q: %w", cfg.BadgerPath, err)
		}
		st.closers = append(st.closers, bdb.Close)
		st.chat = badger.NewChatLog(bdb)
	case "sqlite":
		st.chat = sqlite.NewChatLog(db)
	default:
		st.chat = memory.NewChatLog()
	}
	return nil
}

func (st *stores) openKicks(cfg config.Storage, db *sql.DB) error {
	switch cfg.KickDriver {
	case "valkey":
		client, err := valkey.Open(cfg.ValkeyAddr, cfg.ValkeyPassword)
		if err != nil {
			return fmt.Errorf("connect valkey %s: %w", cfg.ValkeyAddr, err)
		}
		st.closers = append(st.closers, func() error { client.Close(); return nil })
		st.kicks = valkey.NewKickStore(client)
	case "sqlite":
		st.kicks = sqlite.NewKickStore(db)
	default:
		st.kicks = memory.NewKickStore()
	}
	return nil
}

// Close releases backends in reverse opening order.
func (st *stores) Close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			log.Warn().Err(err).Str("module", "storage").Msg("close failed")
		}
	}
	st.closers = nil
}

// seed upserts the configured catalog. Occurrences are only added while the
// subject has none, so restarts do not duplicate rounds.
func seed(ctx context.Context, s config.Seed, st *stores) error {
	for _, u := range s.Users {
		if err := domain.ValidateUserID(domain.UserID(u.ID)); err != nil {
			return fmt.Errorf("seed user %q: %w", u.ID, err)
		}
		if err := st.directory.UpsertUser(ctx, domain.UserID(u.ID), u.Name); err != nil {
			return fmt.Errorf("seed user %q: %w", u.ID, err)
		}
	}
	for _, r := range s.Rooms {
		room := domain.Room{
			Key:       domain.RoomKey(r.Key),
			Name:      r.Name,
			SubjectID: domain.SubjectID(r.SubjectID),
			OwnerID:   domain.UserID(r.OwnerID),
		}
		if err := st.directory.UpsertRoom(ctx, room); err != nil {
			return fmt.Errorf("seed room %q: %w", r.Key, err)
		}
	}

	bySubject := lo.GroupBy(s.Occurrences, func(o config.SeedOccurrence) string { return o.SubjectID })
	for subject, occs := range bySubject {
		n, err := st.schedule.Count(ctx, domain.SubjectID(subject))
		if err != nil {
			return fmt.Errorf("seed occurrences %q: %w", subject, err)
		}
		if n > 0 {
			continue
		}
		for _, o := range occs {
			_, err := st.schedule.AddOccurrence(ctx, domain.Occurrence{
				SubjectID: domain.SubjectID(subject),
				Round:     o.Round,
				Date:      domain.Day(o.Date),
				Start:     o.Start,
				End:       o.End,
			})
			if err != nil {
				return fmt.Errorf("seed occurrence %s/%s: %w", subject, o.Date, err)
			}
		}
	}
	log.Info().Str("module", "storage").Int("users", len(s.Users)).Int("rooms", len(s.Rooms)).
		Int("occurrences", len(s.Occurrences)).Msg("seed applied")
	return nil
}
