package channel

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mendian-cloud/core/internal/models"
	"github.com/mendian-cloud/core/internal/modules/notify/provider"
	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("channel not found")
	ErrProviderNotSupported = errors.New("provider not supported")
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// List returns all channels, newest first, with secrets redacted.
func (s *Service) List() ([]channelResponse, error) {
	var items []models.NotifyChannelModel
	if err := s.db.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]channelResponse, len(items))
	for i := range items {
		out[i] = toResponse(&items[i])
	}
	return out, nil
}

// Get resolves a channel by id or code.
func (s *Service) Get(idOrCode string) (*models.NotifyChannelModel, error) {
	var ch models.NotifyChannelModel
	err := s.db.Where("id = ? OR code = ?", idOrCode, idOrCode).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Upsert creates or updates a channel. The code is immutable once assigned and
// the stored secret is only replaced when the DTO carries the SecretSet flag.
func (s *Service) Upsert(dto *UpsertChannelDTO) (*UpsertResult, error) {
	if strings.TrimSpace(dto.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(dto.WebhookURL) == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if !provider.Supported(dto.Provider) {
		return nil, ErrProviderNotSupported
	}
	mode := dto.SecurityMode
	if mode == "" {
		mode = models.SecurityModeAuto
	}
	switch mode {
	case models.SecurityModeAuto, models.SecurityModeSign, models.SecurityModeKeyword, models.SecurityModeIP:
	default:
		return nil, fmt.Errorf("unknown security mode %q", mode)
	}

	if dto.ID != "" {
		var existed models.NotifyChannelModel
		err := s.db.First(&existed, "id = ?", dto.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		updates := map[string]interface{}{
			"name":          dto.Name,
			"provider":      dto.Provider,
			"webhook_url":   dto.WebhookURL,
			"keyword":       dto.Keyword,
			"security_mode": mode,
		}
		if dto.Enabled != nil {
			updates["enabled"] = *dto.Enabled
		}
		if dto.SecretSet {
			updates["secret"] = dto.Secret
		}
		if err := s.db.Model(&existed).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &UpsertResult{ID: existed.ID, Code: existed.Code, Created: false}, nil
	}

	code := strings.TrimSpace(dto.Code)
	if code == "" {
		code = generateCode()
	}
	ch := models.NotifyChannelModel{
		Code:         code,
		Name:         dto.Name,
		Provider:     dto.Provider,
		WebhookURL:   dto.WebhookURL,
		Keyword:      dto.Keyword,
		SecurityMode: mode,
		Enabled:      true,
	}
	if dto.SecretSet {
		ch.Secret = dto.Secret
	}
	if dto.Enabled != nil {
		ch.Enabled = *dto.Enabled
	}
	if err := s.db.Create(&ch).Error; err != nil {
		return nil, err
	}
	return &UpsertResult{ID: ch.ID, Code: ch.Code, Created: true}, nil
}

// Delete removes a channel by id.
func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.NotifyChannelModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// generateCode synthesizes a unique channel code: unix timestamp + random suffix.
func generateCode() string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("ch%d%s", time.Now().Unix(), hex.EncodeToString(suffix))
}
