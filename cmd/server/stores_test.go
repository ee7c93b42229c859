package main

import (
	"context"
	"testing"

	"github.com/dkeye/StudyRoom/internal/config"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/dkeye/StudyRoom/internal/storage/memory"
	"github.com/dkeye/StudyRoom/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func testConfig(chat, kicks string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.SQLiteDSN = ":memory:"
	cfg.Storage.ChatDriver = chat
	cfg.Storage.KickDriver = kicks
	cfg.Seed = config.Seed{
		Users: []config.SeedUser{{ID: "teacher", Name: "Ms. Kim"}, {ID: "alice", Name: "Alice"}},
		Rooms: []config.SeedRoom{{Key: "R1", Name: "Algebra", SubjectID: "math", OwnerID: "teacher"}},
		Occurrences: []config.SeedOccurrence{
			{SubjectID: "math", Date: "2026-10-19", Start: "09:00", End: "10:00"},
			{SubjectID: "math", Date: "2026-10-20", Start: "09:00", End: "10:00"},
		},
	}
	return cfg
}

func TestOpenStores_Drivers(t *testing.T) {
	req := require.New(t)

	st, err := openStores(context.Background(), testConfig("sqlite", "sqlite"))
	req.NoError(err)
	req.IsType(&sqlite.ChatLog{}, st.chat)
	req.IsType(&sqlite.KickStore{}, st.kicks)
	st.Close()

	st, err = openStores(context.Background(), testConfig("memory", "memory"))
	req.NoError(err)
	req.IsType(&memory.ChatLog{}, st.chat)
	req.IsType(&memory.KickStore{}, st.kicks)
	st.Close()
}

func TestSeed_IsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cfg := testConfig("memory", "memory")
	st, err := openStores(ctx, cfg)
	req.NoError(err)
	t.Cleanup(st.Close)

	req.NoError(seed(ctx, cfg.Seed, st))
	req.NoError(seed(ctx, cfg.Seed, st))

	n, err := st.schedule.Count(ctx, "math")
	req.NoError(err)
	req.Equal(2, n)

	room, err := st.directory.LookupRoom(ctx, "R1")
	req.NoError(err)
	req.Equal(domain.UserID("teacher"), room.OwnerID)

	name, err := st.directory.ResolveDisplayName(ctx, "alice")
	req.NoError(err)
	req.Equal("Alice", name)
}

func TestSeed_RejectsBadUserID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	cfg := testConfig("memory", "memory")
	cfg.Seed.Users = append(cfg.Seed.Users, config.SeedUser{ID: "", Name: "nobody"})
	st, err := openStores(ctx, cfg)
	req.NoError(err)
	t.Cleanup(st.Close)

	req.Error(seed(ctx, cfg.Seed, st))
}
