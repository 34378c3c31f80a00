package dispatch

import (
	"github.com/mendian-cloud/core/internal/models"
	"github.com/mendian-cloud/core/internal/pkg/pagination"
	"github.com/mendian-cloud/core/internal/pkg/response"
)

// ListLogs pages through the push audit trail, newest first.
func (s *Service) ListLogs(q pagination.Query, channelID, status, taskID *string) ([]models.PushLogModel, response.Pagination, error) {
	tx := s.db.Model(&models.PushLogModel{}).Order("created_at DESC")
	if channelID != nil {
		tx = tx.Where("channel_id = ?", *channelID)
	}
	if status != nil {
		tx = tx.Where("status = ?", *status)
	}
	if taskID != nil {
		tx = tx.Where("task_id = ?", *taskID)
	}
	var items []models.PushLogModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}
