package models

// Security modes a notify channel can enforce before a message leaves the system.
const (
	SecurityModeAuto    = "auto"
	SecurityModeSign    = "sign"
	SecurityModeKeyword = "keyword"
	SecurityModeIP      = "ip"
)

// NotifyChannelModel is a configured group-chat webhook destination.
type NotifyChannelModel struct {
	Base
	Code         string `json:"code"         gorm:"uniqueIndex;size:64;not null"`
	Name         string `json:"name"         gorm:"not null"`
	Provider     string `json:"provider"     gorm:"size:32;not null"`
	WebhookURL   string `json:"webhook_url"  gorm:"not null"`
	Secret       string `json:"-"`
	Keyword      string `json:"keyword"`
	SecurityMode string `json:"security_mode" gorm:"size:16;default:auto"`
	// No column default: a bool with default:true silently swallows explicit
	// false on insert, so the registry sets the value itself.
	Enabled bool `json:"enabled"`
}

func (NotifyChannelModel) TableName() string { return "notify_channels" }
