package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttachmentKind is the content class of a stored proof file.
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindPDF   AttachmentKind = "pdf"
)

// Activity actions written to the history feed.
const (
	ActionRecordCreated     = "record_created"
	ActionRecordUpdated     = "record_updated"
	ActionRecordDeleted     = "record_deleted"
	ActionAttachmentAdded   = "attachment_added"
	ActionAttachmentRemoved = "attachment_removed"
	ActionReminderFired     = "reminder_fired"
	ActionDossierExported   = "dossier_exported"
)

// Record is one tracked purchase.
//
// ReturnDays and WarrantyDays are whole calendar days counted from
// PurchaseDate; zero means the obligation is not tracked.
type Record struct {
	ID           string          `json:"id" yaml:"id"`
	Label        string          `json:"label" yaml:"label"`
	Store        string          `json:"store,omitempty" yaml:"store,omitempty"`
	Category     string          `json:"category,omitempty" yaml:"category,omitempty"`
	Amount       decimal.Decimal `json:"amount" yaml:"amount"`
	PurchaseDate time.Time       `json:"purchase_date" yaml:"purchase_date"`
	ReturnDays   int             `json:"return_days" yaml:"return_days"`
	WarrantyDays int             `json:"warranty_days" yaml:"warranty_days"`
	Notes        string          `json:"notes,omitempty" yaml:"notes,omitempty"`
	Attachments  []Attachment    `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"updated_at"`
}

// Attachment references a stored proof file owned by exactly one record.
type Attachment struct {
	ID       string         `json:"id" yaml:"id"`
	RecordID string         `json:"record_id" yaml:"-"`
	Position int            `json:"position" yaml:"position"`
	Filename string         `json:"filename" yaml:"filename"`
	Kind     AttachmentKind `json:"kind" yaml:"kind"`
	MIME     string         `json:"mime" yaml:"mime"`
	Path     string         `json:"path" yaml:"-"`
	Size     int64          `json:"size" yaml:"size"`
	Checksum string         `json:"checksum" yaml:"checksum"`
	AddedAt  time.Time      `json:"added_at" yaml:"added_at"`
}

// Activity is one entry of the history feed.
type Activity struct {
	ID       int64     `json:"id"`
	RecordID string    `json:"record_id,omitempty"`
	Action   string    `json:"action"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Filter narrows a record listing. Zero values match everything.
type Filter struct {
	Text           string
	Store          string
	Category       string
	PurchasedFrom  time.Time
	PurchasedTo    time.Time
	ReturnBefore   time.Time
	WarrantyBefore time.Time
}
