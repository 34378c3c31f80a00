package dispatch

import (
	"github.com/mendian-cloud/core/internal/models"
)

// claimTask performs the single atomic state transition that grants exclusive
// dispatch rights for a task: notify_status becomes "sending" only if the task
// is still lifecycle-pending and its notify_status is in the eligible prior
// set. A zero affected-row count means a concurrent invocation got there first
// (or the task is ineligible) and is a normal skip, not an error.
func (s *Service) claimTask(taskID string, retry bool) (bool, error) {
	prior := []string{models.NotifyPending}
	if retry {
		prior = append(prior, models.NotifyFailed, models.NotifySending)
	}
	res := s.db.Model(&models.FollowupTaskModel{}).
		Where("id = ? AND status = ? AND notify_status IN ?", taskID, models.FollowupPending, prior).
		Update("notify_status", models.NotifySending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
