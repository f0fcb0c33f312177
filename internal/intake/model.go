package intake

import (
	"github.com/MapleGroveLabs/moodnest/internal/checkin"
)

// Checkin models one persisted check-in row. The (user_id, client_id)
// pair is the primary key: replaying a submission with the same client
// id can only ever land on the existing row.
type Checkin struct {
	UserID           string `gorm:"column:user_id;primaryKey;size:190;not null;index:idx_checkins_user_recorded,priority:1"`
	ClientID         string `gorm:"column:client_id;primaryKey;size:190;not null"`
	Emotion          string `gorm:"column:emotion;size:32;not null"`
	Mode             string `gorm:"column:mode;size:8;not null"`
	Note             string `gorm:"column:note;type:text;not null;default:''"`
	DrawingRef       string `gorm:"column:drawing_ref;type:text;not null;default:''"`
	RecordedAtISO    string `gorm:"column:recorded_at_iso;size:64;not null;index:idx_checkins_user_recorded,priority:2"`
	ReceivedAtSecond int64  `gorm:"column:received_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Checkin) TableName() string {
	return "checkins"
}

// Submission is one incoming check-in: the record the client captured
// plus its optional idempotency key. A direct (never-queued) submission
// carries no client id and is assigned one on receipt.
type Submission struct {
	Record   checkin.Record
	ClientID string
}

// ApplyResult reports the disposition of one submission.
type ApplyResult struct {
	// ClientID is the key the row is stored under, server-assigned when
	// the submission carried none.
	ClientID string
	// Duplicate is true when the client id was already persisted; the
	// stored row is left untouched and the replay is acknowledged.
	Duplicate bool
}
