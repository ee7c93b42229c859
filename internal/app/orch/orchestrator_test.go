package orch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/StudyRoom/internal/app"
	"github.com/dkeye/StudyRoom/internal/app/ledger"
	"github.com/dkeye/StudyRoom/internal/app/orch"
	"github.com/dkeye/StudyRoom/internal/app/schedule"
	"github.com/dkeye/StudyRoom/internal/core"
	"github.com/dkeye/StudyRoom/internal/core/coretest"
	"github.com/dkeye/StudyRoom/internal/domain"
	"github.com/dkeye/StudyRoom/internal/mocks"
	"github.com/dkeye/StudyRoom/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	o         *orch.Orchestrator
	clock     *testClock
	schedule  *memory.ScheduleStore
	chat      *memory.ChatLog
	directory *memory.Directory
}

func newFixture(t *testing.T, dir core.Directory) fixture {
	clock := &testClock{now: time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)}
	mdir := memory.NewDirectory()
	mdir.AddRoom(domain.Room{Key: "R1", Name: "Algebra", SubjectID: "math", OwnerID: "teacher"})
	mdir.AddUser("teacher", "Ms. Kim")
	mdir.AddUser("alice", "Alice")
	mdir.AddUser("bob", "Bob")
	if dir == nil {
		dir = mdir
	}

	sched := memory.NewScheduleStore()
	_, err := sched.AddOccurrence(domain.Occurrence{SubjectID: "math", Date: "2026-10-19", Start: "09:00", End: "10:00"})
	require.NoError(t, err)

	chat := memory.NewChatLog()
	sink := app.NewChatSink(chat, 16, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = sink.Run(ctx) }()

	reg := core.NewSessionRegistry(core.DefaultShards)
	presence := app.NewPresenceBroadcaster(reg, nil)
	limiter := app.NewRateLimiter(0, time.Second)
	o := &orch.Orchestrator{
		Sessions:  reg,
		Presence:  presence,
		Router:    app.NewMessageRouter(reg, presence, sink, app.RouterOptions{Limiter: limiter, Now: clock.Now}),
		Notifier:  app.NewTargetedNotifier(),
		Schedule:  schedule.NewResolver(sched, time.UTC, clock.Now),
		Ledger:    ledger.New(memory.NewParticipationStore(), clock.Now),
		Directory: dir,
		Kicks:     memory.NewKickStore(),
		Limiter:   limiter,
	}
	return fixture{o: o, clock: clock, schedule: sched, chat: chat, directory: mdir}
}

func (f fixture) join(t *testing.T, room domain.RoomKey, user domain.UserID) (*core.MemberSession, *coretest.Conn) {
	t.Helper()
	conn := coretest.NewConn()
	ms, err := f.o.Admit(context.Background(), orch.JoinRequest{Room: room, User: user}, conn)
	require.NoError(t, err)
	require.NoError(t, f.o.Enter(context.Background(), ms))
	return ms, conn
}

func memberIDs(ev core.MemberListEvent) []domain.UserID {
	out := make([]domain.UserID, 0, len(ev.Members))
	for _, m := range ev.Members {
		out = append(out, m.ID)
	}
	return out
}

func TestOrchestrator_TwoMembersChatAndLeave(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	alice, aliceConn := f.join(t, "R1", "alice")
	enter, ok := coretest.Last[core.EnterEvent](aliceConn, core.EventEnter)
	req.True(ok)
	req.Equal("Alice", enter.Name)
	req.Equal(alice.Occurrence, enter.Occurrence)

	bob, bobConn := f.join(t, "R1", "bob")
	req.Equal(alice.Occurrence, bob.Occurrence)

	for _, c := range []*coretest.Conn{aliceConn, bobConn} {
		ev, ok := coretest.Last[core.MemberListEvent](c, core.EventMemberList)
		req.True(ok)
		req.Equal(2, ev.Count)
		req.ElementsMatch([]domain.UserID{"alice", "bob"}, memberIDs(ev))
	}

	f.o.OnMessage(ctx, alice, []byte(`{"type":"TALK","text":"good morning"}`))
	for _, c := range []*coretest.Conn{aliceConn, bobConn} {
		ev, ok := coretest.Last[core.TalkEvent](c, core.EventTalk)
		req.True(ok)
		req.Equal("good morning", ev.Text)
		req.Equal("Alice", ev.Name)
	}
	req.Eventually(func() bool {
		h, _ := f.chat.History(ctx, "R1", 10)
		return len(h) == 1 && h[0].Text == "good morning"
	}, 2*time.Second, 10*time.Millisecond)

	f.clock.Advance(10 * time.Minute)
	f.o.OnDisconnect(ctx, bob)
	f.o.OnDisconnect(ctx, bob)

	ev, ok := coretest.Last[core.MemberListEvent](aliceConn, core.EventMemberList)
	req.True(ok)
	req.Equal([]domain.UserID{"alice"}, memberIDs(ev))

	att, err := f.o.Ledger.Attendance(ctx, alice.Occurrence)
	req.NoError(err)
	req.Len(att, 2)
	for _, p := range att {
		if p.Key.User == "bob" {
			req.NotNil(p.LeftAt)
			req.Equal(10*time.Minute, p.LeftAt.Sub(p.JoinedAt))
		} else {
			req.True(p.Open())
		}
	}
}

func TestOrchestrator_RefreshKeepsAttendanceOpen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	first, _ := f.join(t, "R1", "alice")
	second, _ := f.join(t, "R1", "alice")
	f.o.OnDisconnect(ctx, first)

	att, err := f.o.Ledger.Attendance(ctx, first.Occurrence)
	req.NoError(err)
	req.Len(att, 1)
	req.True(att[0].Open())

	f.o.OnDisconnect(ctx, second)
	att, err = f.o.Ledger.Attendance(ctx, first.Occurrence)
	req.NoError(err)
	req.Len(att, 1)
	req.False(att[0].Open())
	req.Zero(f.o.Sessions.Count("R1"))
}

func TestOrchestrator_UnknownRoomIsRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)

	_, err := f.o.Admit(context.Background(), orch.JoinRequest{Room: "nowhere", User: "alice"}, coretest.NewConn())

	req.ErrorIs(err, core.ErrUnknownRoom)
	req.Equal(core.ReasonUnknownRoom, core.RejectReason(err))
	req.Empty(f.o.Sessions.Rooms())
}

func TestOrchestrator_KickSuppressesRejoinForTheDay(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)
	_, aliceConn := f.join(t, "R1", "alice")
	bob, bobConn := f.join(t, "R1", "bob")

	n, err := f.o.Kick(ctx, "teacher", "R1", "bob")
	req.NoError(err)
	req.Equal(1, n)

	kicked, ok := coretest.Last[core.KickedEvent](bobConn, core.EventKicked)
	req.True(ok)
	req.Equal(domain.UserID("teacher"), kicked.By)
	req.True(bobConn.Closed())

	// the transport's read loop reports the close
	f.o.OnDisconnect(ctx, bob)
	ev, ok := coretest.Last[core.MemberListEvent](aliceConn, core.EventMemberList)
	req.True(ok)
	req.Equal([]domain.UserID{"alice"}, memberIDs(ev))

	f.clock.Advance(4 * time.Hour)
	_, err = f.o.Admit(ctx, orch.JoinRequest{Room: "R1", User: "bob"}, coretest.NewConn())
	req.ErrorIs(err, core.ErrKicked)
	req.Equal(core.ReasonKicked, core.RejectReason(err))

	f.clock.Advance(24 * time.Hour)
	ms, err := f.o.Admit(ctx, orch.JoinRequest{Room: "R1", User: "bob"}, coretest.NewConn())
	req.NoError(err)
	req.NotEqual(bob.Occurrence, ms.Occurrence)
}

func TestOrchestrator_KickRequiresOwner(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)
	_, bobConn := f.join(t, "R1", "bob")

	_, err := f.o.Kick(ctx, "alice", "R1", "bob")
	req.ErrorIs(err, core.ErrForbidden)
	_, err = f.o.Kick(ctx, "teacher", "R1", "teacher")
	req.ErrorIs(err, core.ErrForbidden)
	_, err = f.o.Kick(ctx, "teacher", "nowhere", "bob")
	req.ErrorIs(err, core.ErrUnknownRoom)
	req.False(bobConn.Closed())
}

func TestOrchestrator_UnresolvedUserJoinsAsNonDurable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	dir.EXPECT().
		LookupRoom(gomock.Any(), domain.RoomKey("R1")).
		Return(domain.Room{Key: "R1", SubjectID: "math", OwnerID: "teacher"}, nil)
	dir.EXPECT().
		ResolveDisplayName(gomock.Any(), domain.UserID("visitor")).
		Return("", core.ErrNotFound)
	f := newFixture(t, dir)

	conn := coretest.NewConn()
	ms, err := f.o.Admit(ctx, orch.JoinRequest{Room: "R1", User: "visitor", Name: "Visitor"}, conn)
	req.NoError(err)
	req.False(ms.Meta().Durable)
	req.Equal("Visitor", ms.Meta().User.Username)
	req.NoError(f.o.Enter(ctx, ms))

	f.o.OnMessage(ctx, ms, []byte(`{"type":"TALK","text":"hello?"}`))
	_, ok := coretest.Last[core.TalkEvent](conn, core.EventTalk)
	req.True(ok)
	h, err := f.chat.History(ctx, "R1", 10)
	req.NoError(err)
	req.Empty(h)
}

func TestOrchestrator_NotifyReachesBoundUser(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	conn := coretest.NewConn()
	f.o.Notifier.Register("alice", core.NewConnID(), conn)

	req.True(f.o.Notify("alice", []byte(`{"text":"quiz at 10"}`)))
	req.False(f.o.Notify("bob", []byte(`{}`)))

	ev, ok := coretest.Last[core.NotificationEvent](conn, core.EventNotification)
	req.True(ok)
	req.JSONEq(`{"text":"quiz at 10"}`, string(ev.Payload))
}

func TestOrchestrator_KickBetweenAdmitAndEnter(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)

	conn := coretest.NewConn()
	ms, err := f.o.Admit(ctx, orch.JoinRequest{Room: "R1", User: "bob"}, conn)
	req.NoError(err)

	n, err := f.o.Kick(ctx, "teacher", "R1", "bob")
	req.NoError(err)
	req.Zero(n)

	err = f.o.Enter(ctx, ms)
	req.ErrorIs(err, core.ErrKicked)
	req.Empty(f.o.Sessions.SessionsOfUser("R1", "bob"))
	req.Empty(conn.Frames())

	att, err := f.o.Ledger.Attendance(ctx, ms.Occurrence)
	req.NoError(err)
	req.Empty(att)
}

func TestOrchestrator_RoomWithoutSubjectIsRejected(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	f.directory.AddRoom(domain.Room{Key: "R9", Name: "Lounge", OwnerID: "teacher"})

	_, err := f.o.Admit(context.Background(), orch.JoinRequest{Room: "R9", User: "alice"}, coretest.NewConn())

	req.ErrorIs(err, core.ErrScheduleUnresolved)
	req.Equal(core.ReasonScheduleUnresolved, core.RejectReason(err))
	req.Zero(f.schedule.Count(""))
}

func TestOrchestrator_ShutdownClosesSessionsAndRecordsLeaves(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t, nil)
	alice, aliceConn := f.join(t, "R1", "alice")
	bob, bobConn := f.join(t, "R1", "bob")
	notifyConn := coretest.NewConn()
	f.o.Notifier.Register("alice", core.NewConnID(), notifyConn)

	f.clock.Advance(5 * time.Minute)
	req.Equal(2, f.o.Shutdown(ctx))

	req.True(aliceConn.Closed())
	req.True(bobConn.Closed())
	req.True(notifyConn.Closed())
	req.Empty(f.o.Sessions.Rooms())
	req.False(f.o.Notifier.Online("alice"))

	att, err := f.o.Ledger.Attendance(ctx, alice.Occurrence)
	req.NoError(err)
	req.Len(att, 2)
	for _, p := range att {
		req.False(p.Open(), "user %s", p.Key.User)
	}

	// the transport's late callback is a no-op
	f.o.OnDisconnect(ctx, bob)
	att, err = f.o.Ledger.Attendance(ctx, alice.Occurrence)
	req.NoError(err)
	req.Len(att, 2)
}
