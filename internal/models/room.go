package models

// Room is a bookable campus room. Rooms are managed by Admin users only;
// deactivated rooms keep their loan history but drop out of new availability
// results.
type Room struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Location   *string   `json:"location"`
	Capacity   int       `json:"capacity"`
	Facilities *string   `json:"facilities"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  CivilTime `json:"createdAt"`
	UpdatedAt  CivilTime `json:"updatedAt"`
}

// RoomAvailability is the partial room shape returned by the availability
// query.
type RoomAvailability struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Location   *string `json:"location"`
	Capacity   int     `json:"capacity"`
	Facilities *string `json:"facilities"`
}

type CreateRoomRequest struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Location   *string `json:"location,omitempty"`
	Capacity   int     `json:"capacity"`
	Facilities *string `json:"facilities,omitempty"`
}

type UpdateRoomRequest struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Location   *string `json:"location,omitempty"`
	Capacity   int     `json:"capacity"`
	Facilities *string `json:"facilities,omitempty"`
	IsActive   bool    `json:"isActive"`
}
