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

// Feishu sends text messages to Feishu (Lark) custom bot webhooks.
// Unlike DingTalk, the signature travels inside the JSON body.
type Feishu struct{}

func (Feishu) Kind() string { return KindFeishu }

type feishuPayload struct {
	Timestamp string `json:"timestamp,omitempty"`
	Sign      string `json:"sign,omitempty"`
	MsgType   string `json:"msg_type"`
	Content   struct {
		Text string `json:"text"`
	} `json:"content"`
}

type feishuResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (f Feishu) Send(ch *models.NotifyChannelModel, message string) Result {
	content, err := prepareContent(ch, message)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
	}
	sign, err := shouldSign(ch)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
	}
	if u, err := url.Parse(ch.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Result{Error: fmt.Sprintf("invalid webhook url %q", ch.WebhookURL), WebhookURL: ch.WebhookURL}
	}

	var payload feishuPayload
	payload.MsgType = "text"
	payload.Content.Text = content
	if sign {
		ts := time.Now().Unix()
		payload.Timestamp = strconv.FormatInt(ts, 10)
		payload.Sign = feishuSign(ts, ch.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: err.Error(), WebhookURL: ch.WebhookURL}
	}

	result := Result{RequestPayload: string(body), WebhookURL: ch.WebhookURL}

	resp, err := httpClient.Post(ch.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	result.StatusCode = resp.StatusCode
	result.Body = string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("feishu webhook returned http %d", resp.StatusCode)
		return result
	}

	var apiResp feishuResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		result.Error = fmt.Sprintf("decode feishu response: %v", err)
		return result
	}
	if apiResp.Code != 0 {
		result.Error = fmt.Sprintf("feishu api error %d: %s", apiResp.Code, apiResp.Msg)
		return result
	}

	result.OK = true
	return result
}

// feishuSign computes base64(HMAC-SHA256(key=ts+"\n"+secret, data="")) with ts
// in epoch seconds. The key/data roles really are swapped relative to DingTalk;
// this matches Feishu's documented scheme and must not be "fixed".
func feishuSign(ts int64, secret string) string {
	mac := hmac.New(sha256.New, []byte(strconv.FormatInt(ts, 10)+"\n"+secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
