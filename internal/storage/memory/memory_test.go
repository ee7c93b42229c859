package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/dkeye/StudyRoom/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func TestScheduleStore_AutoRoundIsUniquePerDay(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := memory.NewScheduleStore()

	_, err := s.AddOccurrence(domain.Occurrence{SubjectID: "math", Date: "2026-10-18", Start: "09:00", End: "10:00"})
	req.NoError(err)
	_, err = s.AddOccurrence(domain.Occurrence{SubjectID: "math", Round: 1, Date: "2026-10-19"})
	req.ErrorIs(err, core.ErrConflict)

	occ, err := s.CreateOccurrence(ctx, "math", "2026-10-19")
	req.NoError(err)
	req.Equal(2, occ.Round)
	req.True(occ.Auto)

	_, err = s.CreateOccurrence(ctx, "math", "2026-10-19")
	req.ErrorIs(err, core.ErrConflict)

	other, err := s.CreateOccurrence(ctx, "art", "2026-10-19")
	req.NoError(err)
	req.Equal(1, other.Round)

	list, err := s.ListOccurrencesOn(ctx, "math", "2026-10-19")
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(occ.ID, list[0].ID)

	_, err = s.LookupOccurrence(ctx, "math", 999)
	req.ErrorIs(err, core.ErrNotFound)
}

func TestScheduleStore_FindActiveOccurrence(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := memory.NewScheduleStore()
	early, err := s.AddOccurrence(domain.Occurrence{SubjectID: "math", Date: "2026-10-19", Start: "09:00", End: "11:00"})
	req.NoError(err)
	late, err := s.AddOccurrence(domain.Occurrence{SubjectID: "math", Date: "2026-10-19", Start: "10:00", End: "11:00"})
	req.NoError(err)

	occ, err := s.FindActiveOccurrence(ctx, "math", time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC))
	req.NoError(err)
	req.Equal(early.ID, occ.ID)

	occ, err = s.FindActiveOccurrence(ctx, "math", time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC))
	req.NoError(err)
	req.Equal(late.ID, occ.ID)

	_, err = s.FindActiveOccurrence(ctx, "math", time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC))
	req.ErrorIs(err, core.ErrNotFound)
}

func TestParticipationStore_OneOpenRecordPerKey(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := memory.NewParticipationStore()
	key := domain.ParticipationKey{OccurrenceID: 1, Room: "R1", User: "alice"}
	t0 := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	created, err := s.OpenParticipation(ctx, key, t0)
	req.NoError(err)
	req.True(created)
	created, err = s.OpenParticipation(ctx, key, t0.Add(time.Minute))
	req.NoError(err)
	req.False(created)

	closed, err := s.CloseParticipation(ctx, key, t0.Add(time.Hour))
	req.NoError(err)
	req.True(closed)
	closed, err = s.CloseParticipation(ctx, key, t0.Add(2*time.Hour))
	req.NoError(err)
	req.False(closed)

	list, err := s.ListParticipation(ctx, 1)
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(t0, list[0].JoinedAt)
	req.Equal(t0.Add(time.Hour), *list[0].LeftAt)
}

func TestKickStore_ScopedToRoomAndDay(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := memory.NewKickStore()
	req.NoError(s.MarkKicked(ctx, domain.KickMarker{Room: "R1", User: "bob", At: time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)}))

	kicked, err := s.IsKicked(ctx, "R1", "bob", "2026-10-19")
	req.NoError(err)
	req.True(kicked)

	for _, tc := range []struct {
		room domain.RoomKey
		user domain.UserID
		day  domain.Day
	}{
		{"R1", "bob", "2026-10-20"},
		{"R2", "bob", "2026-10-19"},
		{"R1", "alice", "2026-10-19"},
	} {
		kicked, err := s.IsKicked(ctx, tc.room, tc.user, tc.day)
		req.NoError(err)
		req.False(kicked, "%+v", tc)
	}
}

func TestChatLog_HistoryKeepsNewest(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	c := memory.NewChatLog()
	for _, text := range []string{"one", "two", "three"} {
		req.NoError(c.PersistChatMessage(ctx, domain.ChatMessage{Room: "R1", UserID: "alice", Text: text}))
	}
	req.NoError(c.PersistChatMessage(ctx, domain.ChatMessage{Room: "R2", UserID: "bob", Text: "elsewhere"}))

	msgs, err := c.History(ctx, "R1", 2)
	req.NoError(err)
	req.Equal([]string{"two", "three"}, []string{msgs[0].Text, msgs[1].Text})

	all, err := c.History(ctx, "R1", 0)
	req.NoError(err)
	req.Len(all, 3)
}

func TestDirectory_UnknownIsNotFound(t *testing.T) {
	req := require.New(t)
	d := memory.NewDirectory()
	d.AddUser("alice", "Alice")

	name, err := d.ResolveDisplayName(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Alice", name)

	_, err = d.ResolveDisplayName(context.Background(), "ghost")
	req.ErrorIs(err, core.ErrNotFound)
	_, err = d.LookupRoom(context.Background(), "R9")
	req.ErrorIs(err, core.ErrNotFound)
}
