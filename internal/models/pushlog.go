package models

// Push attempt outcomes recorded in the audit trail.
const (
	PushSuccess = "success"
	PushFailed  = "failed"
)

// PushLogModel is the append-only audit trail of webhook send attempts.
// Rows are never updated or deleted by the dispatch core.
type PushLogModel struct {
	Base
	ChannelID      string  `json:"channel_id"      gorm:"type:char(36);index"`
	Provider       string  `json:"provider"        gorm:"size:32"`
	Status         string  `json:"status"          gorm:"size:16;index"`
	StatusCode     int     `json:"status_code"`
	RequestPayload string  `json:"request_payload" gorm:"type:longtext"`
	ResponseBody   string  `json:"response_body"   gorm:"type:longtext"`
	Error          string  `json:"error"           gorm:"type:text"`
	TriggerSource  string  `json:"trigger_source"  gorm:"size:32;index"`
	TaskID         *string `json:"task_id"         gorm:"type:char(36);index"`
}

func (PushLogModel) TableName() string { return "push_logs" }
