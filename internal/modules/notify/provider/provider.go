package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mendian-cloud/core/internal/models"
)

// Supported provider kinds.
const (
	KindDingTalk = "dingtalk"
	KindFeishu   = "feishu"
)

const sendTimeout = 10 * time.Second

var httpClient = &http.Client{Timeout: sendTimeout}

// Result is the outcome of a single webhook send attempt.
type Result struct {
	OK             bool
	Error          string
	StatusCode     int
	Body           string
	RequestPayload string
	WebhookURL     string
}

// Adapter encapsulates one provider's wire format and signing scheme.
// Implementations are stateless and safe for concurrent use.
type Adapter interface {
	Kind() string
	Send(ch *models.NotifyChannelModel, message string) Result
}

var adapters = map[string]Adapter{
	KindDingTalk: &DingTalk{},
	KindFeishu:   &Feishu{},
}

// Get returns the adapter for a provider kind, or nil if the kind is unknown.
func Get(kind string) Adapter { return adapters[kind] }

// Supported reports whether a provider kind has a registered adapter.
func Supported(kind string) bool { return adapters[kind] != nil }

// Kinds lists the registered provider kinds.
func Kinds() []string {
	out := make([]string, 0, len(adapters))
	for k := range adapters {
		out = append(out, k)
	}
	return out
}

// prepareContent applies the channel's keyword policy to the outgoing message.
// Under explicit keyword mode a configured keyword is mandatory; under auto mode
// it is applied only when configured. The keyword is prepended as "[<kw>] "
// unless the message already contains it.
func prepareContent(ch *models.NotifyChannelModel, message string) (string, error) {
	switch ch.SecurityMode {
	case models.SecurityModeKeyword:
		if strings.TrimSpace(ch.Keyword) == "" {
			return "", fmt.Errorf("keyword security mode requires a configured keyword")
		}
	case models.SecurityModeAuto:
		if strings.TrimSpace(ch.Keyword) == "" {
			return message, nil
		}
	default:
		return message, nil
	}
	if strings.Contains(message, ch.Keyword) {
		return message, nil
	}
	return "[" + ch.Keyword + "] " + message, nil
}

// shouldSign decides whether the channel's signing scheme applies. Explicit
// sign mode requires a secret; auto mode signs opportunistically.
func shouldSign(ch *models.NotifyChannelModel) (bool, error) {
	switch ch.SecurityMode {
	case models.SecurityModeSign:
		if ch.Secret == "" {
			return false, fmt.Errorf("sign security mode requires a configured secret")
		}
		return true, nil
	case models.SecurityModeAuto:
		return ch.Secret != "", nil
	default:
		// keyword and ip modes never sign; ip is accepted but has no
		// distinct behavior of its own.
		return false, nil
	}
}
