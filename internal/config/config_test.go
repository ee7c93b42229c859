package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dkeye/StudyRoom/internal/config"
	"github.com/stretchr/testify/require"
)

const sample = `
mode: debug
port: 9090
secret: from-file
slow_client_policy: close
storage:
  chat_driver: memory
  kick_driver: memory
chat:
  rate_limit: 2
  rate_interval: 10s
schedule:
  timezone: Asia/Seoul
seed:
  users:
    - id: teacher
      name: Ms. Kim
  rooms:
    - key: R1
      name: Algebra
      subject_id: math
      owner_id: teacher
  occurrences:
    - subject_id: math
      date: "2026-10-19"
      start: "09:00"
      end: "10:00"
`

func TestLoadFile(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	req.NoError(os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("STUDYROOM_PORT", "7070")

	cfg, err := config.LoadFile(path)
	req.NoError(err)

	req.Equal("debug", cfg.Mode)
	req.Equal(7070, cfg.Port)
	req.Equal("from-file", cfg.Secret)
	req.Equal("close", cfg.SlowClientPolicy)
	req.Equal("memory", cfg.Storage.ChatDriver)
	req.Equal(2, cfg.Chat.RateLimit)
	req.Equal(10*time.Second, cfg.Chat.RateInterval)
	req.Equal(2000, cfg.Chat.MaxLength)
	req.Equal(54*time.Second, cfg.PingPeriod)

	loc, err := cfg.Schedule.Location()
	req.NoError(err)
	req.Equal("Asia/Seoul", loc.String())

	req.Len(cfg.Seed.Rooms, 1)
	req.Equal("teacher", cfg.Seed.Rooms[0].OwnerID)
	req.Len(cfg.Seed.Occurrences, 1)
	req.Equal("09:00", cfg.Seed.Occurrences[0].Start)
}

func TestLoadFile_DefaultsNeedSecret(t *testing.T) {
	req := require.New(t)
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	_, err := config.LoadFile(missing)
	req.Error(err)

	t.Setenv("STUDYROOM_SECRET", "from-env")
	cfg, err := config.LoadFile(missing)
	req.NoError(err)
	req.Equal(8080, cfg.Port)
	req.Equal("badger", cfg.Storage.ChatDriver)
	req.Equal("UTC", cfg.Schedule.Timezone)
}

func TestLoadFile_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STUDYROOM_SECRET", "s")
	t.Setenv("STUDYROOM_STORAGE_CHAT_DRIVER", "postgres")

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "chat_driver")
}

func TestLoadFile_MalformedFileIsAnError(t *testing.T) {
	req := require.New(t)
	t.Setenv("STUDYROOM_SECRET", "s")
	path := filepath.Join(t.TempDir(), "broken.yaml")
	req.NoError(os.WriteFile(path, []byte("port: [unclosed\n"), 0o600))

	_, err := config.LoadFile(path)
	req.ErrorContains(err, "read config")
}
