package domain

import "time"

type Property struct {
	ID                 string
	HostID             string
	OrganizationID     string
	PricePerNightCents int64
	MaxGuests          int
	Published          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
