package domain

import "time"

// DeletionJobStatus is the lifecycle state of a scheduled deletion.
type DeletionJobStatus string

// DeletionScheduled is the only status the gateway itself writes; the sweep
// that executes jobs is an external concern.
const DeletionScheduled DeletionJobStatus = "scheduled"

// DeletionJob records a pending account/location-data erasure. The live
// preference document is sanitized synchronously when the job is created;
// the job row is advisory state for the external sweeper.
type DeletionJob struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	ScheduledFor time.Time         `json:"scheduledFor"`
	Status       DeletionJobStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// ExportArchive is the data bundle handed back through the download token.
type ExportArchive struct {
	UserID      string          `json:"userId"`
	ExportedAt  time.Time       `json:"exportedAt"`
	Preferences UserPreferences `json:"preferences"`
}

// ExportStatus is the lifecycle state of an export record.
type ExportStatus string

// ExportCompleted is set at creation time: export rendering is synchronous,
// the "job" terminology exists only for the external contract.
const ExportCompleted ExportStatus = "completed"

// ExportRecord couples a rendered archive with its single-use download
// token. DownloadToken is the sole capability required to fetch the archive;
// ConsumedAt is stamped on the first successful fetch and later fetches see
// the record as absent.
type ExportRecord struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	DownloadToken string        `json:"-"`
	Archive       ExportArchive `json:"archive"`
	Status        ExportStatus  `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	ConsumedAt    *time.Time    `json:"-"`
}
