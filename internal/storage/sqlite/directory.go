package sqlite

import (
	"context"
	"database/sql"

	"github.com/dkeye/StudyRoom/internal/domain"
)

type Directory struct {
	db *sql.DB
}

func NewDirectory(db *sql.DB) *Directory { return &Directory{db: db} }

// UpsertUser creates or renames a user.
func (d *Directory) UpsertUser(ctx context.Context, id domain.UserID, name string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		string(id), name)
	return mapError(err)
}

func (d *Directory) UpsertRoom(ctx context.Context, room domain.Room) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO rooms (room_key, name, subject_id, owner_id) VALUES (?, ?, ?, ?)
		 ON CONFLICT (room_key) DO UPDATE SET name = excluded.name, subject_id = excluded.subject_id, owner_id = excluded.owner_id`,
		string(room.Key), room.Name, string(room.SubjectID), string(room.OwnerID))
	return mapError(err)
}

func (d *Directory) ResolveDisplayName(ctx context.Context, user domain.UserID) (string, error) {
	var name string
	err := d.db.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, string(user)).Scan(&name)
	if err != nil {
		return "", mapError(err)
	}
	return name, nil
}

func (d *Directory) LookupRoom(ctx context.Context, key domain.RoomKey) (domain.Room, error) {
	var room domain.Room
	var k, subject, owner string
	err := d.db.QueryRowContext(ctx,
		`SELECT room_key, name, subject_id, owner_id FROM rooms WHERE room_key = ?`, string(key)).
		Scan(&k, &room.Name, &subject, &owner)
	if err != nil {
		return domain.Room{}, mapError(err)
	}
	room.Key = domain.RoomKey(k)
	room.SubjectID = domain.SubjectID(subject)
	room.OwnerID = domain.UserID(owner)
	return room, nil
}
