package domain

// Flags are the presentation toggles a client may change after connecting.
type Flags struct {
	Muted     bool `json:"muted"`
	CameraOff bool `json:"camera_off"`
	Speaking  bool `json:"speaking"`
}

// FlagsDelta carries a partial flag update; nil means unchanged.
type FlagsDelta struct {
	Muted     *bool `json:"muted,omitempty"`
	CameraOff *bool `json:"camera_off,omitempty"`
	Speaking  *bool `json:"speaking,omitempty"`
}

func (d FlagsDelta) Empty() bool {
	return d.Muted == nil && d.CameraOff == nil && d.Speaking == nil
}

func (f Flags) Apply(d FlagsDelta) Flags {
	if d.Muted != nil {
		f.Muted = *d.Muted
	}
	if d.CameraOff != nil {
		f.CameraOff = *d.CameraOff
	}
	if d.Speaking != nil {
		f.Speaking = *d.Speaking
	}
	return f
}

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User  *User
	Flags Flags
	// Durable is false when the user id did not resolve to a stored account.
	Durable bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
