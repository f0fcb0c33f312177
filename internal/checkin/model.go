package checkin

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode enumerates the optional content kinds a check-in can carry.
type Mode string

const (
	// ModeText marks a check-in accompanied by a free-text note.
	ModeText Mode = "text"
	// ModeDraw marks a check-in accompanied by a drawing reference.
	ModeDraw Mode = "draw"
	// ModeNone marks a check-in with the emotion label only.
	ModeNone Mode = "none"
)

// Emotion is one of the fixed mood categories a child can pick.
type Emotion string

const (
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionScared  Emotion = "scared"
	EmotionCalm    Emotion = "calm"
	EmotionExcited Emotion = "excited"
	EmotionTired   Emotion = "tired"
	EmotionSilly   Emotion = "silly"
)

var knownEmotions = map[Emotion]struct{}{
	EmotionHappy:   {},
	EmotionSad:     {},
	EmotionAngry:   {},
	EmotionScared:  {},
	EmotionCalm:    {},
	EmotionExcited: {},
	EmotionTired:   {},
	EmotionSilly:   {},
}

var (
	// ErrInvalidEmotion indicates the emotion label is empty or outside the fixed set.
	ErrInvalidEmotion = errors.New("checkin: invalid emotion")
	// ErrConflictingContent indicates both a note and a drawing reference were supplied.
	ErrConflictingContent = errors.New("checkin: note and drawing are mutually exclusive")
	// ErrInvalidDate indicates the check-in timestamp is absent or unparseable.
	ErrInvalidDate = errors.New("checkin: invalid date")
)

// Record is one emotional check-in as captured on the client.
//
// Mode is always derived from content presence: a non-empty Note yields
// ModeText, a non-empty DrawingRef yields ModeDraw, neither yields
// ModeNone. The two content fields are mutually exclusive.
type Record struct {
	Emotion    Emotion `json:"emotion"`
	Mode       Mode    `json:"mode"`
	Note       string  `json:"note,omitempty"`
	DrawingRef string  `json:"drawingRef,omitempty"`
	DateISO    string  `json:"dateISO"`
}

// NewRecord validates the inputs and returns a Record with Mode derived
// from which content is present. DateISO must be RFC 3339.
func NewRecord(emotion Emotion, note, drawingRef, dateISO string) (Record, error) {
	if _, ok := knownEmotions[emotion]; !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidEmotion, string(emotion))
	}

	note = strings.TrimSpace(note)
	drawingRef = strings.TrimSpace(drawingRef)
	if note != "" && drawingRef != "" {
		return Record{}, ErrConflictingContent
	}

	if strings.TrimSpace(dateISO) == "" {
		return Record{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	if _, err := time.Parse(time.RFC3339, dateISO); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}

	mode := ModeNone
	switch {
	case note != "":
		mode = ModeText
	case drawingRef != "":
		mode = ModeDraw
	}

	return Record{
		Emotion:    emotion,
		Mode:       mode,
		Note:       note,
		DrawingRef: drawingRef,
		DateISO:    dateISO,
	}, nil
}

// Validate re-checks the invariants on a Record that arrived from
// storage or the wire rather than through NewRecord.
func (r Record) Validate() error {
	if _, ok := knownEmotions[r.Emotion]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidEmotion, string(r.Emotion))
	}
	if r.Note != "" && r.DrawingRef != "" {
		return ErrConflictingContent
	}
	expected := ModeNone
	switch {
	case r.Note != "":
		expected = ModeText
	case r.DrawingRef != "":
		expected = ModeDraw
	}
	if r.Mode != expected {
		return fmt.Errorf("checkin: mode %q inconsistent with content", string(r.Mode))
	}
	if _, err := time.Parse(time.RFC3339, r.DateISO); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return nil
}

// QueuedCheckin wraps a Record for durable local storage while the
// device is offline.
type QueuedCheckin struct {
	// ClientID is the idempotency key the server de-duplicates on. It is
	// generated once at enqueue time and never regenerated.
	ClientID string `json:"clientId"`
	// Timestamp is the unix-seconds enqueue time, kept for diagnostics
	// and ordering only.
	Timestamp int64  `json:"timestamp"`
	Payload   Record `json:"payload"`
}
