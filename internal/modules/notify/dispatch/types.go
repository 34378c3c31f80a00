package dispatch

import "time"

// Trigger sources recorded on every push log row.
const (
	TriggerManual      = "manual"
	TriggerCron        = "cron"
	TriggerDueSweep    = "followup_due"
	TriggerAppointment = "appointment_created"
)

const maxLimit = 500

// DispatchOptions controls a due-task sweep.
type DispatchOptions struct {
	ChannelIDs  []string `json:"channelIds"`
	StoreID     string   `json:"storeId"`
	Limit       int      `json:"limit"`
	RetryFailed bool     `json:"retryFailed"`
}

// ChannelRef identifies a channel in a dispatch result.
type ChannelRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// ChannelAttempt is the per-channel outcome inside one task's fan-out.
type ChannelAttempt struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
}

// TaskDetail is the per-task outcome of a due-task sweep.
type TaskDetail struct {
	TaskID   string           `json:"taskId"`
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Attempts []ChannelAttempt `json:"attempts"`
}

// DispatchResult aggregates a due-task sweep.
type DispatchResult struct {
	Total    int          `json:"total"`
	Sent     int          `json:"sent"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
	Channels []ChannelRef `json:"channels"`
	Details  []TaskDetail `json:"details"`
}

// BroadcastResult aggregates an appointment-created broadcast.
type BroadcastResult struct {
	Sent     int              `json:"sent"`
	Failed   int              `json:"failed"`
	Attempts []ChannelAttempt `json:"attempts"`
}

// TestSendResult is returned by the manual test-send path.
type TestSendResult struct {
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	WebhookURL string    `json:"webhookUrl"`
	SentAt     time.Time `json:"sentAt"`
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
