package domain

import "time"

// Sync outcomes
const (
	SyncStatusCreated  = "created"
	SyncStatusUpdated  = "updated"
	SyncStatusConflict = "conflict"
	SyncStatusError    = "error"
)

// SyncItem one client-authored record in a sync batch; lives for one request
type SyncItem struct {
	LocalID         string    `json:"localId"`
	UserID          string    `json:"userId"`
	Timestamp       time.Time `json:"timestamp"`
	Emojis          []string  `json:"emojis"`
	Intensity       int       `json:"intensity"`
	Note            *string   `json:"note,omitempty"`
	Location        *Location `json:"location,omitempty"`
	ClientTimestamp time.Time `json:"clientTimestamp"`
}

// ToRecord candidate record built from the item
func (i *SyncItem) ToRecord() *MoodRecord {
	cts := i.ClientTimestamp
	var loc *Location
	if i.Location != nil {
		l := *i.Location
		loc = &l
	}
	return &MoodRecord{
		UserID:          i.UserID,
		Timestamp:       i.Timestamp,
		Emojis:          append([]string(nil), i.Emojis...),
		Intensity:       i.Intensity,
		Note:            i.Note,
		Location:        loc,
		ClientTimestamp: &cts,
	}
}

// SyncResult outcome for one item
type SyncResult struct {
	LocalID         string     `json:"localId"`
	ServerID        string     `json:"serverId,omitempty"`
	Status          string     `json:"status"`
	ServerTimestamp *time.Time `json:"serverTimestamp,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// SyncReport batch outcome. Conflicts are processed but count as neither success nor error.
type SyncReport struct {
	Results        []SyncResult `json:"results"`
	TotalProcessed int          `json:"totalProcessed"`
	SuccessCount   int          `json:"successCount"`
	ErrorCount     int          `json:"errorCount"`
}

// SyncStatus per-user sync summary
type SyncStatus struct {
	UserID       string     `json:"userId"`
	LastSync     *time.Time `json:"lastSync"`
	TotalEntries int        `json:"totalEntries"`
}
