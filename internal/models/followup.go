package models

import "time"

// Follow-up task lifecycle status, owned by the CRM side.
const (
	FollowupPending   = "pending"
	FollowupCompleted = "completed"
	FollowupCancelled = "cancelled"
)

// Notify status state machine, owned by the dispatch core.
// pending → sending (claim) → sent | failed. Retry mode additionally allows
// failed → sending and sending → sending (reclaiming a stuck attempt).
const (
	NotifyPending = "pending"
	NotifySending = "sending"
	NotifySent    = "sent"
	NotifyFailed  = "failed"
)

// FollowupTaskModel is a due customer follow-up that staff should be reminded of.
type FollowupTaskModel struct {
	Base
	AppointmentID   string     `json:"appointment_id"    gorm:"type:char(36);index"`
	CustomerID      string     `json:"customer_id"       gorm:"type:char(36);index"`
	StoreID         string     `json:"store_id"          gorm:"type:char(36);index"`
	DueAt           time.Time  `json:"due_at"            gorm:"index;not null"`
	Title           string     `json:"title"`
	Content         string     `json:"content"           gorm:"type:text"`
	Status          string     `json:"status"            gorm:"size:16;default:pending;index"`
	NotifyStatus    string     `json:"notify_status"     gorm:"size:16;default:pending;index"`
	NotifyChannelID string     `json:"notify_channel_id" gorm:"type:char(36)"`
	NotifyError     string     `json:"notify_error"      gorm:"type:text"`
	NotifiedAt      *time.Time `json:"notified_at"`
}

func (FollowupTaskModel) TableName() string { return "followup_tasks" }
