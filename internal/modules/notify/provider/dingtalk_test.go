package provider

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mendian-cloud/core/internal/models"
)

func TestDingtalkSign(t *testing.T) {
	got := dingtalkSign(1717000000000, "s3cret")
	want := "N3XM3mIVsOetYVvjT36+dNxLhrOJH6vNibe9M0RuhNI="
	if got != want {
		t.Fatalf("dingtalkSign = %q, want %q", got, want)
	}
}

func TestSignedWebhookURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no query", "https://oapi.dingtalk.com/robot/send"},
		{"existing query", "https://oapi.dingtalk.com/robot/send?access_token=tok"},
		{"stale sign params", "https://oapi.dingtalk.com/robot/send?access_token=tok&timestamp=1&sign=old%2Fsig"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := signedWebhookURL(tc.raw, 1717000000000, "abc+def=")
			if err != nil {
				t.Fatalf("signedWebhookURL: %v", err)
			}
			u, err := url.Parse(out)
			if err != nil {
				t.Fatalf("parse rewritten url: %v", err)
			}
			q := u.Query()
			if got := q["timestamp"]; len(got) != 1 || got[0] != "1717000000000" {
				t.Fatalf("timestamp params = %v", got)
			}
			if got := q["sign"]; len(got) != 1 || got[0] != "abc+def=" {
				t.Fatalf("sign params = %v", got)
			}
			if strings.Contains(tc.raw, "access_token") && q.Get("access_token") != "tok" {
				t.Fatalf("access_token lost: %s", out)
			}
		})
	}

	if _, err := signedWebhookURL("://not a url", 1, "s"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestDingTalkSendOK(t *testing.T) {
	var gotPath string
	var gotBody dingtalkPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{
		Provider:     KindDingTalk,
		WebhookURL:   srv.URL + "/robot/send?access_token=tok",
		Secret:       "s3cret",
		SecurityMode: models.SecurityModeSign,
	}
	res := DingTalk{}.Send(ch, "有新预约")
	if !res.OK {
		t.Fatalf("send failed: %s", res.Error)
	}
	if res.StatusCode != 200 {
		t.Fatalf("status code = %d", res.StatusCode)
	}
	if gotBody.MsgType != "text" || gotBody.Text.Content != "有新预约" {
		t.Fatalf("unexpected payload: %+v", gotBody)
	}
	if !strings.Contains(gotPath, "timestamp=") || !strings.Contains(gotPath, "sign=") {
		t.Fatalf("signed query missing: %s", gotPath)
	}
	if !strings.Contains(res.RequestPayload, "msgtype") {
		t.Fatalf("request payload not captured: %s", res.RequestPayload)
	}
}

func TestDingTalkSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"keywords not in content"}`))
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{Provider: KindDingTalk, WebhookURL: srv.URL, SecurityMode: models.SecurityModeAuto}
	res := DingTalk{}.Send(ch, "hello")
	if res.OK {
		t.Fatal("expected api failure")
	}
	if !strings.Contains(res.Error, "310000") {
		t.Fatalf("error should carry provider code: %s", res.Error)
	}
	if res.StatusCode != 200 {
		t.Fatalf("status code = %d", res.StatusCode)
	}
}

func TestDingTalkSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ch := &models.NotifyChannelModel{Provider: KindDingTalk, WebhookURL: srv.URL, SecurityMode: models.SecurityModeAuto}
	res := DingTalk{}.Send(ch, "hello")
	if res.OK {
		t.Fatal("expected transport failure")
	}
	if !strings.Contains(res.Error, "502") {
		t.Fatalf("error = %s", res.Error)
	}
}

func TestDingTalkSignModeWithoutSecret(t *testing.T) {
	ch := &models.NotifyChannelModel{Provider: KindDingTalk, WebhookURL: "https://example.com", SecurityMode: models.SecurityModeSign}
	res := DingTalk{}.Send(ch, "hello")
	if res.OK || res.StatusCode != 0 {
		t.Fatalf("expected config failure before any network call, got %+v", res)
	}
}
