package checkin

import "github.com/google/uuid"

// IDProvider issues client identifiers for queued check-ins.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
// UUIDv7 carries a millisecond time prefix followed by random bits, so
// ids sort by creation time and stay collision-resistant across the
// practical lifetime of a local queue.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
