package channel

import (
	"time"

	"github.com/mendian-cloud/core/internal/models"
)

type UpsertChannelDTO struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"         binding:"required"`
	Provider     string `json:"provider"     binding:"required"`
	WebhookURL   string `json:"webhookUrl"   binding:"required,url"`
	Secret       string `json:"secret"`
	SecretSet    bool   `json:"secretSet"`
	Keyword      string `json:"keyword"`
	SecurityMode string `json:"securityMode"`
	Enabled      *bool  `json:"enabled"`
}

// UpsertResult reports what the upsert did.
type UpsertResult struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Created bool   `json:"created"`
}

// channelResponse redacts the secret to a presence flag.
type channelResponse struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	WebhookURL   string    `json:"webhookUrl"`
	HasSecret    bool      `json:"hasSecret"`
	Keyword      string    `json:"keyword"`
	SecurityMode string    `json:"securityMode"`
	Enabled      bool      `json:"enabled"`
	Created      time.Time `json:"created"`
	Modified     time.Time `json:"modified"`
}

func toResponse(ch *models.NotifyChannelModel) channelResponse {
	return channelResponse{
		ID: ch.ID, Code: ch.Code, Name: ch.Name, Provider: ch.Provider,
		WebhookURL: ch.WebhookURL, HasSecret: ch.Secret != "",
		Keyword: ch.Keyword, SecurityMode: ch.SecurityMode, Enabled: ch.Enabled,
		Created: ch.CreatedAt, Modified: ch.UpdatedAt,
	}
}
