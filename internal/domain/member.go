package domain

// Member represents a participant's presence in a relay room.
// No transport or lifecycle logic here.
type Member struct {
	ID   ParticipantID
	Room RoomName
}

func NewMember(id ParticipantID, room RoomName) *Member {
	return &Member{ID: id, Room: room}
}
