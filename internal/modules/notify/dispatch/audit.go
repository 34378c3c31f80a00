package dispatch

import (
	"github.com/mendian-cloud/core/internal/models"
	"github.com/mendian-cloud/core/internal/modules/notify/provider"
	"go.uber.org/zap"
)

// Truncation caps keep unbounded provider responses out of storage.
const (
	maxResponseBodyLen = 60000
	maxDispatchErrLen  = 1000
	maxTestErrLen      = 500
)

// writeLog appends one immutable audit row for a send attempt. A failed insert
// is logged and swallowed: the audit trail must never abort task processing.
func (s *Service) writeLog(ch *models.NotifyChannelModel, res provider.Result, trigger string, taskID *string, errCap int) {
	status := models.PushFailed
	if res.OK {
		status = models.PushSuccess
	}
	row := models.PushLogModel{
		ChannelID:      ch.ID,
		Provider:       ch.Provider,
		Status:         status,
		StatusCode:     res.StatusCode,
		RequestPayload: res.RequestPayload,
		ResponseBody:   truncate(res.Body, maxResponseBodyLen),
		Error:          truncate(res.Error, errCap),
		TriggerSource:  trigger,
		TaskID:         taskID,
	}
	if err := s.db.Create(&row).Error; err != nil {
		s.log.Warn("push log write failed",
			zap.String("channel", ch.ID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}

// truncate keeps the leading prefix of s, at most max characters. Counted in
// runes so multi-byte provider messages are never cut mid-character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
