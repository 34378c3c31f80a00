package provider

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/mendian-cloud/core/internal/models"
)

// DingTalk sends text messages to DingTalk group robot webhooks.
// Signature parameters are carried in the webhook URL query string.
type DingTalk struct{}

func (DingTalk) Kind() string { return KindDingTalk }

type dingtalkPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type dingtalkResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (d DingTalk) Send(ch *models.NotifyChannelModel, message string) Result {
	content, err := prepareContent(ch, message)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
	}
	sign, err := shouldSign(ch)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
	}

	webhookURL := ch.WebhookURL
	if sign {
		ts := time.Now().UnixMilli()
		webhookURL, err = signedWebhookURL(ch.WebhookURL, ts, dingtalkSign(ts, ch.Secret))
		if err != nil {
			return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
		}
	}

	var payload dingtalkPayload
	payload.MsgType = "text"
	payload.Text.Content = content
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: webhookURL}
	}

	result := Result{RequestPayload: string(body), WebhookURL: webhookURL}

	resp, err := httpClient.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode
	result.Body = string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("dingtalk webhook returned http %d", resp.StatusCode)
		return result
	}

	// A 2xx status is not enough: the robot API reports failures in the body.
	var apiResp dingtalkResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		result.Error = fmt.Sprintf("decode dingtalk response: %v", err)
		return result
	}
	if apiResp.ErrCode != 0 {
		result.Error = fmt.Sprintf("dingtalk api error %d: %s", apiResp.ErrCode, apiResp.ErrMsg)
		return result
	}

	result.OK = true
	return result
}

// dingtalkSign computes base64(HMAC-SHA256(key=secret, data=ts+"\n"+secret))
// with ts in epoch milliseconds, per the DingTalk robot security scheme.
func dingtalkSign(ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10) + "\n" + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signedWebhookURL rewrites the webhook URL with fresh timestamp/sign query
// parameters, dropping any stale ones already present.
func signedWebhookURL(raw string, ts int64, sign string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid webhook url %q", raw)
	}
	q := u.Query()
	q.Del("timestamp")
	q.Del("sign")
	q.Set("timestamp", strconv.FormatInt(ts, 10))
	q.Set("sign", sign)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
