package dispatch

import (
	"errors"
	"strings"
	"time"

	"github.com/mendian-cloud/core/internal/models"
	"github.com/mendian-cloud/core/internal/modules/notify/channel"
	"github.com/mendian-cloud/core/internal/modules/notify/provider"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNoEnabledChannel     = errors.New("no enabled channel")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	errProviderNotSupported = "push provider not supported"
)

// Service is the dispatch orchestrator: claims due follow-up tasks, fans
// messages out across configured channels and records every attempt.
type Service struct {
	db       *gorm.DB
	channels *channel.Service
	log      *zap.Logger
}

func NewService(db *gorm.DB, channels *channel.Service, logger *zap.Logger) *Service {
	return &Service{db: db, channels: channels, log: logger.Named("dispatch")}
}

// resolveChannels returns the target channel set: the given ids restricted to
// enabled channels, or every enabled channel when no ids are given.
func (s *Service) resolveChannels(ids []string) ([]models.NotifyChannelModel, error) {
	tx := s.db.Where("enabled = ?", true)
	if len(ids) > 0 {
		tx = tx.Where("id IN ?", ids)
	}
	var items []models.NotifyChannelModel
	if err := tx.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// sendToChannel routes one message through the channel's provider adapter. An
// unknown provider kind is recorded as a failed attempt, never an error.
func sendToChannel(ch *models.NotifyChannelModel, message string) provider.Result {
	ad := provider.Get(ch.Provider)
	if ad == nil {
		return provider.Result{Error: errProviderNotSupported, WebhookURL: ch.WebhookURL}
	}
	return ad.Send(ch, message)
}

// NotifyDueFollowups sweeps due follow-up tasks and relays a reminder for each
// to every resolved channel. Safe under concurrent invocation: the per-task
// claim is the only exclusivity mechanism, and a lost claim counts as skipped.
func (s *Service) NotifyDueFollowups(opts DispatchOptions, trigger string) (*DispatchResult, error) {
	limit := clampLimit(opts.Limit)

	channels, err := s.resolveChannels(opts.ChannelIDs)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, ErrNoEnabledChannel
	}

	tx := s.db.
		Where("status = ?", models.FollowupPending).
		Where("due_at <= ?", time.Now())
	if opts.RetryFailed {
		tx = tx.Where("notify_status IN ?", []string{models.NotifyPending, models.NotifyFailed, models.NotifySending})
	} else {
		tx = tx.Where("notify_status = ?", models.NotifyPending)
	}
	if opts.StoreID != "" {
		tx = tx.Where("store_id = ?", opts.StoreID)
	}
	var tasks []models.FollowupTaskModel
	if err := tx.Order("due_at ASC, id ASC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}

	result := &DispatchResult{
		Total:    len(tasks),
		Channels: make([]ChannelRef, len(channels)),
		Details:  make([]TaskDetail, 0, len(tasks)),
	}
	for i := range channels {
		result.Channels[i] = ChannelRef{ID: channels[i].ID, Name: channels[i].Name, Provider: channels[i].Provider}
	}

	for i := range tasks {
		task := &tasks[i]
		claimed, err := s.claimTask(task.ID, opts.RetryFailed)
		if err != nil {
			s.log.Warn("claim failed", zap.String("task", task.ID), zap.Error(err))
			result.Skipped++
			continue
		}
		if !claimed {
			result.Skipped++
			continue
		}

		detail := s.dispatchTask(task, channels, trigger)
		if detail.OK {
			result.Sent++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, detail)
	}

	return result, nil
}

// dispatchTask fans one claimed task out across every channel. The loop never
// short-circuits on success: the audit trail gets one row per channel per
// invocation regardless of outcome.
func (s *Service) dispatchTask(task *models.FollowupTaskModel, channels []models.NotifyChannelModel, trigger string) TaskDetail {
	message := buildFollowupMessage(s.loadFollowupContext(task))

	detail := TaskDetail{TaskID: task.ID, Attempts: make([]ChannelAttempt, 0, len(channels))}
	var lastOKChannel string
	var failures []string

	for i := range channels {
		ch := &channels[i]
		res := sendToChannel(ch, message)
		s.writeLog(ch, res, trigger, &task.ID, maxDispatchErrLen)

		detail.Attempts = append(detail.Attempts, ChannelAttempt{
			ChannelID: ch.ID, ChannelName: ch.Name,
			OK: res.OK, Error: res.Error, StatusCode: res.StatusCode,
		})
		if res.OK {
			lastOKChannel = ch.ID
		} else {
			failures = append(failures, ch.Name+": "+res.Error)
		}
	}

	if lastOKChannel != "" {
		detail.OK = true
		now := time.Now()
		updates := map[string]interface{}{
			"notify_status":     models.NotifySent,
			"notify_channel_id": lastOKChannel,
			"notify_error":      "",
			"notified_at":       now,
		}
		if err := s.db.Model(&models.FollowupTaskModel{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			s.log.Warn("final status update failed", zap.String("task", task.ID), zap.Error(err))
		}
		return detail
	}

	detail.Error = truncate(strings.Join(failures, "；"), maxDispatchErrLen)
	updates := map[string]interface{}{
		"notify_status": models.NotifyFailed,
		"notify_error":  detail.Error,
	}
	if err := s.db.Model(&models.FollowupTaskModel{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		s.log.Warn("final status update failed", zap.String("task", task.ID), zap.Error(err))
	}
	return detail
}

// NotifyAppointmentCreated broadcasts a just-created appointment to every
// enabled channel. The caller fires this exactly once per creation, so no
// claiming is involved; zero enabled channels is a quiet no-op rather than an
// error.
func (s *Service) NotifyAppointmentCreated(appointmentID, trigger string) (*BroadcastResult, error) {
	var appt models.AppointmentModel
	err := s.db.First(&appt, "id = ?", appointmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, err
	}

	channels, err := s.resolveChannels(nil)
	if err != nil {
		return nil, err
	}
	result := &BroadcastResult{Attempts: make([]ChannelAttempt, 0, len(channels))}
	if len(channels) == 0 {
		return result, nil
	}

	message := buildAppointmentMessage(&appt,
		findByID[models.StoreModel](s.db, appt.StoreID),
		findByID[models.CustomerModel](s.db, appt.CustomerID),
	)

	for i := range channels {
		ch := &channels[i]
		res := sendToChannel(ch, message)
		s.writeLog(ch, res, trigger, nil, maxDispatchErrLen)

		result.Attempts = append(result.Attempts, ChannelAttempt{
			ChannelID: ch.ID, ChannelName: ch.Name,
			OK: res.OK, Error: res.Error, StatusCode: res.StatusCode,
		})
		if res.OK {
			result.Sent++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// SendTest pushes an arbitrary message through one channel so operators can
// verify its configuration. The attempt is audited like any other.
func (s *Service) SendTest(idOrCode, message string) (*TestSendResult, error) {
	ch, err := s.channels.Get(idOrCode)
	if err != nil {
		return nil, err
	}
	res := sendToChannel(ch, message)
	s.writeLog(ch, res, TriggerManual, nil, maxTestErrLen)
	return &TestSendResult{
		OK:         res.OK,
		Error:      res.Error,
		StatusCode: res.StatusCode,
		WebhookURL: res.WebhookURL,
		SentAt:     time.Now(),
	}, nil
}
