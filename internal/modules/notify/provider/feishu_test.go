package provider

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/mendian-cloud/core/internal/models"
)

func TestFeishuSign(t *testing.T) {
	got := feishuSign(1717000000, "s3cret")
	want := "7wYPFc2LKDlPQmAlWsVW2vyFS2jQ4dnsUC1dRXWh4ik="
	if got != want {
		t.Fatalf("feishuSign = %q, want %q", got, want)
	}
}

func TestFeishuSendSignedPayload(t *testing.T) {
	var gotBody feishuPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{
		Provider:     KindFeishu,
		WebhookURL:   srv.URL,
		Secret:       "s3cret",
		SecurityMode: models.SecurityModeSign,
	}
	res := Feishu{}.Send(ch, "回访提醒")
	if !res.OK {
		t.Fatalf("send failed: %s", res.Error)
	}
	if gotBody.MsgType != "text" || gotBody.Content.Text != "回访提醒" {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
	if gotBody.Timestamp == "" || gotBody.Sign == "" {
		t.Fatalf("timestamp/sign missing from body: %+v", gotBody)
	}
	// The receiver can recompute the signature from the embedded timestamp.
	ts, err := strconv.ParseInt(gotBody.Timestamp, 10, 64)
	if err != nil {
		t.Fatalf("timestamp not numeric: %q", gotBody.Timestamp)
	}
	if want := feishuSign(ts, "s3cret"); gotBody.Sign != want {
		t.Fatalf("sign = %q, want %q", gotBody.Sign, want)
	}
}

func TestFeishuSendUnsignedWithoutSecret(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{Provider: KindFeishu, WebhookURL: srv.URL, SecurityMode: models.SecurityModeAuto}
	res := Feishu{}.Send(ch, "hello")
	if !res.OK {
		t.Fatalf("send failed: %s", res.Error)
	}
	if _, ok := gotBody["sign"]; ok {
		t.Fatalf("sign should be omitted without a secret: %v", gotBody)
	}
}

func TestFeishuSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":19021,"msg":"sign match fail"}`))
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{Provider: KindFeishu, WebhookURL: srv.URL, SecurityMode: models.SecurityModeAuto}
	res := Feishu{}.Send(ch, "hello")
	if res.OK {
		t.Fatal("expected api failure")
	}
	if !strings.Contains(res.Error, "sign match fail") {
		t.Fatalf("error = %s", res.Error)
	}
}

func TestFeishuKeywordModeWithoutKeyword(t *testing.T) {
	ch := &models.NotifyChannelModel{Provider: KindFeishu, WebhookURL: "https://example.com", SecurityMode: models.SecurityModeKeyword}
	res := Feishu{}.Send(ch, "hello")
	if res.OK || res.StatusCode != 0 {
		t.Fatalf("expected config failure before any network call, got %+v", res)
	}
}
