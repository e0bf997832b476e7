package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Mood categories (weather metaphors)
const (
	EmojiSunny  = "sunny"
	EmojiPartly = "partly"
	EmojiCloudy = "cloudy"
	EmojiRainy  = "rainy"
	EmojiStormy = "stormy"
)

// ValidEmojis ordered catalog of accepted tags
var ValidEmojis = []string{EmojiSunny, EmojiPartly, EmojiCloudy, EmojiRainy, EmojiStormy}

const (
	MinEmojis     = 1
	MaxEmojis     = 5
	MinIntensity  = 0
	MaxIntensity  = 100
	MaxNoteLength = 500
)

// Location geographic coordinate, PlaceName filled by reverse geocoding
type Location struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	PlaceName string  `json:"placeName,omitempty"`
}

// ExternalWeather snapshot taken when the record was created; never recomputed
type ExternalWeather struct {
	Temp        float64 `json:"temp"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Condition   string  `json:"weather_main"` // "Clear", "Clouds", "Rain", ...
	Description string  `json:"weather_description"`
	Icon        string  `json:"icon"`
}

// MoodRecord one mood entry (mood_records table)
type MoodRecord struct {
	EntryID string `json:"entryId" db:"entry_id"`
	UserID  string `json:"userId" db:"user_id"`

	// logical occurrence time, UTC
	Timestamp time.Time `json:"timestamp" db:"occurred_at"`

	Emojis    []string `json:"emojis" db:"emojis"` // JSONB
	Intensity int      `json:"intensity" db:"intensity"`
	Note      *string  `json:"note,omitempty" db:"note"`

	Location        *Location        `json:"location,omitempty" db:"location"`                // JSONB
	ExternalWeather *ExternalWeather `json:"externalWeather,omitempty" db:"external_weather"` // JSONB

	// authoring wall clock on the client; only set by offline sync
	ClientTimestamp *time.Time `json:"clientTimestamp,omitempty" db:"client_timestamp"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasNote true when the note has non-whitespace content
func (r *MoodRecord) HasNote() bool {
	return r.Note != nil && strings.TrimSpace(*r.Note) != ""
}

// Day UTC calendar day of Timestamp (midnight)
func (r *MoodRecord) Day() time.Time {
	return TruncateDay(r.Timestamp)
}

// TruncateDay midnight UTC of t's UTC calendar date
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordUpdate partial update; nil fields are left unchanged
type RecordUpdate struct {
	Emojis          []string
	Intensity       *int
	Note            *string
	ClearNote       bool
	Location        *Location
	ClientTimestamp *time.Time
}

// IsEmpty true when nothing would change
func (u *RecordUpdate) IsEmpty() bool {
	return u.Emojis == nil && u.Intensity == nil && u.Note == nil && !u.ClearNote &&
		u.Location == nil && u.ClientTimestamp == nil
}

// Apply mutates r in place (store implementations share this)
func (u *RecordUpdate) Apply(r *MoodRecord) {
	if u.Emojis != nil {
		r.Emojis = append([]string(nil), u.Emojis...)
	}
	if u.Intensity != nil {
		r.Intensity = *u.Intensity
	}
	if u.ClearNote {
		r.Note = nil
	}
	if u.Note != nil {
		n := *u.Note
		r.Note = &n
	}
	if u.Location != nil {
		loc := *u.Location
		r.Location = &loc
	}
	if u.ClientTimestamp != nil {
		ts := StoredTime(*u.ClientTimestamp)
		r.ClientTimestamp = &ts
	}
}

// NormalizeEmojis validates tags and drops duplicates keeping first occurrence
func NormalizeEmojis(emojis []string) ([]string, error) {
	if len(emojis) < MinEmojis || len(emojis) > MaxEmojis {
		return nil, fmt.Errorf("%w: emojis must contain %d-%d items", ErrValidation, MinEmojis, MaxEmojis)
	}
	seen := make(map[string]struct{}, len(emojis))
	out := make([]string, 0, len(emojis))
	for _, e := range emojis {
		if !isValidEmoji(e) {
			return nil, fmt.Errorf("%w: invalid emoji %q, must be one of %v", ErrValidation, e, ValidEmojis)
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

func isValidEmoji(e string) bool {
	for _, v := range ValidEmojis {
		if v == e {
			return true
		}
	}
	return false
}

// ValidateIntensity 0-100
func ValidateIntensity(v int) error {
	if v < MinIntensity || v > MaxIntensity {
		return fmt.Errorf("%w: intensity must be between %d and %d", ErrValidation, MinIntensity, MaxIntensity)
	}
	return nil
}

// ValidateNote at most MaxNoteLength characters
func ValidateNote(note *string) error {
	if note != nil && utf8.RuneCountInString(*note) > MaxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrValidation, MaxNoteLength)
	}
	return nil
}

// ValidateLocation lat/lon ranges
func ValidateLocation(loc *Location) error {
	if loc == nil {
		return nil
	}
	if loc.Lat < -90 || loc.Lat > 90 {
		return fmt.Errorf("%w: lat must be between -90 and 90", ErrValidation)
	}
	if loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("%w: lon must be between -180 and 180", ErrValidation)
	}
	return nil
}

// ValidateUpdate checks the fields present in u and normalizes its emojis
func ValidateUpdate(u *RecordUpdate) error {
	if u.Emojis != nil {
		emojis, err := NormalizeEmojis(u.Emojis)
		if err != nil {
			return err
		}
		u.Emojis = emojis
	}
	if u.Intensity != nil {
		if err := ValidateIntensity(*u.Intensity); err != nil {
			return err
		}
	}
	if err := ValidateNote(u.Note); err != nil {
		return err
	}
	return ValidateLocation(u.Location)
}

// Validate checks a new record and normalizes its emojis and timestamps to UTC
func (r *MoodRecord) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	emojis, err := NormalizeEmojis(r.Emojis)
	if err != nil {
		return err
	}
	r.Emojis = emojis
	if err := ValidateIntensity(r.Intensity); err != nil {
		return err
	}
	if err := ValidateNote(r.Note); err != nil {
		return err
	}
	if err := ValidateLocation(r.Location); err != nil {
		return err
	}
	r.Timestamp = StoredTime(r.Timestamp)
	if r.ClientTimestamp != nil {
		ts := StoredTime(*r.ClientTimestamp)
		r.ClientTimestamp = &ts
	}
	return nil
}

// StoredTime UTC at the microsecond precision TIMESTAMPTZ keeps
func StoredTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
