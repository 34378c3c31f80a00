package dispatch

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mendian-cloud/core/internal/models"
	"github.com/mendian-cloud/core/internal/modules/notify/provider"
	"gorm.io/gorm"
)

func okDingtalkServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func okFeishuServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"success"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedChannel(t *testing.T, db *gorm.DB, name, kind, url string, mutate func(*models.NotifyChannelModel)) *models.NotifyChannelModel {
	t.Helper()
	ch := &models.NotifyChannelModel{
		Code: "code-" + name, Name: name, Provider: kind,
		WebhookURL: url, SecurityMode: models.SecurityModeAuto, Enabled: true,
	}
	if mutate != nil {
		mutate(ch)
	}
	if err := db.Create(ch).Error; err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return ch
}

func TestNotifyDueFollowupsEndToEnd(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedChannel(t, db, "钉钉群", provider.KindDingTalk, okDingtalkServer(t).URL, func(ch *models.NotifyChannelModel) {
		ch.SecurityMode = models.SecurityModeSign
		ch.Secret = "s3cret"
	})
	seedChannel(t, db, "飞书群", provider.KindFeishu, okFeishuServer(t).URL, func(ch *models.NotifyChannelModel) {
		ch.SecurityMode = models.SecurityModeKeyword
		ch.Keyword = "到店"
	})
	task := seedTask(t, db, models.NotifyPending)

	result, err := svc.NotifyDueFollowups(DispatchOptions{Limit: 10}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("NotifyDueFollowups: %v", err)
	}
	if result.Total != 1 || result.Sent != 1 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Channels) != 2 {
		t.Fatalf("channel roster: %+v", result.Channels)
	}
	if len(result.Details) != 1 || len(result.Details[0].Attempts) != 2 {
		t.Fatalf("details: %+v", result.Details)
	}

	// Exactly one audit row per channel attempt.
	var logCount int64
	db.Model(&models.PushLogModel{}).Count(&logCount)
	if logCount != 2 {
		t.Fatalf("push log rows = %d, want 2", logCount)
	}

	var got models.FollowupTaskModel
	if err := db.First(&got, "id = ?", task.ID).Error; err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if got.NotifyStatus != models.NotifySent {
		t.Fatalf("notify_status = %q", got.NotifyStatus)
	}
	if got.NotifiedAt == nil || got.NotifyChannelID == "" || got.NotifyError != "" {
		t.Fatalf("final state not stamped: %+v", got)
	}
}

func TestNotifyDueFollowupsFullFanOutOnPartialFailure(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedChannel(t, db, "好群", provider.KindDingTalk, okDingtalkServer(t).URL, nil)
	seedChannel(t, db, "坏群", provider.KindFeishu, failingServer(t).URL, nil)
	task := seedTask(t, db, models.NotifyPending)

	result, err := svc.NotifyDueFollowups(DispatchOptions{Limit: 1}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("NotifyDueFollowups: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("one channel succeeded, task should count as sent: %+v", result)
	}

	// Both channels must have been attempted and logged despite the success.
	var logCount int64
	db.Model(&models.PushLogModel{}).Count(&logCount)
	if logCount != 2 {
		t.Fatalf("push log rows = %d, want 2", logCount)
	}

	var got models.FollowupTaskModel
	db.First(&got, "id = ?", task.ID)
	if got.NotifyStatus != models.NotifySent {
		t.Fatalf("notify_status = %q", got.NotifyStatus)
	}
}

func TestNotifyDueFollowupsAllChannelsFail(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedChannel(t, db, "钉钉群", provider.KindDingTalk, failingServer(t).URL, nil)
	seedChannel(t, db, "神秘群", "pigeon", "https://example.com", nil)
	task := seedTask(t, db, models.NotifyPending)

	result, err := svc.NotifyDueFollowups(DispatchOptions{Limit: 5}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("NotifyDueFollowups: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var got models.FollowupTaskModel
	db.First(&got, "id = ?", task.ID)
	if got.NotifyStatus != models.NotifyFailed {
		t.Fatalf("notify_status = %q", got.NotifyStatus)
	}
	// Each channel's failure is recorded, prefixed by its display name.
	if !strings.Contains(got.NotifyError, "钉钉群:") || !strings.Contains(got.NotifyError, "神秘群:") {
		t.Fatalf("notify_error = %q", got.NotifyError)
	}
	if !strings.Contains(got.NotifyError, "push provider not supported") {
		t.Fatalf("unknown provider should be a recorded failure: %q", got.NotifyError)
	}
}

func TestNotifyDueFollowupsSkipsClaimedTask(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedChannel(t, db, "群", provider.KindDingTalk, okDingtalkServer(t).URL, nil)
	seedTask(t, db, models.NotifySending)

	// Not retrying: a task another invocation already claimed is not selected.
	result, err := svc.NotifyDueFollowups(DispatchOptions{Limit: 5}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("NotifyDueFollowups: %v", err)
	}
	if result.Total != 0 || result.Sent != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Retry mode reclaims it.
	result, err = svc.NotifyDueFollowups(DispatchOptions{Limit: 5, RetryFailed: true}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if result.Total != 1 || result.Sent != 1 {
		t.Fatalf("unexpected retry result: %+v", result)
	}
}

func TestNotifyDueFollowupsNoEnabledChannel(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	seedChannel(t, db, "停用群", provider.KindDingTalk, "https://example.com", func(ch *models.NotifyChannelModel) {
		ch.Enabled = false
	})
	seedTask(t, db, models.NotifyPending)

	if _, err := svc.NotifyDueFollowups(DispatchOptions{Limit: 5}, TriggerDueSweep); !errors.Is(err, ErrNoEnabledChannel) {
		t.Fatalf("err = %v, want ErrNoEnabledChannel", err)
	}
}

func TestNotifyDueFollowupsChannelFilter(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	target := seedChannel(t, db, "目标群", provider.KindDingTalk, okDingtalkServer(t).URL, nil)
	seedChannel(t, db, "其他群", provider.KindFeishu, okFeishuServer(t).URL, nil)
	seedTask(t, db, models.NotifyPending)

	result, err := svc.NotifyDueFollowups(DispatchOptions{ChannelIDs: []string{target.ID}, Limit: 5}, TriggerDueSweep)
	if err != nil {
		t.Fatalf("NotifyDueFollowups: %v", err)
	}
	if len(result.Channels) != 1 || result.Channels[0].ID != target.ID {
		t.Fatalf("channel roster: %+v", result.Channels)
	}

	var logCount int64
	db.Model(&models.PushLogModel{}).Count(&logCount)
	if logCount != 1 {
		t.Fatalf("push log rows = %d, want 1", logCount)
	}
}

func TestNotifyAppointmentCreated(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	store := &models.StoreModel{Name: "万象城店"}
	customer := &models.CustomerModel{Name: "李四", Mobile: "13800001111"}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	appt := &models.AppointmentModel{
		ApptNo: "A20260901001", StoreID: store.ID, CustomerID: customer.ID,
		ServiceName: "皮肤护理", StaffName: "小王",
		StartAt: time.Now().Add(time.Hour), EndAt: time.Now().Add(2 * time.Hour),
		Source: models.ApptSourceMiniProgram,
	}
	if err := db.Create(appt).Error; err != nil {
		t.Fatalf("seed appointment: %v", err)
	}

	// Without channels the broadcast is a quiet no-op.
	result, err := svc.NotifyAppointmentCreated(appt.ID, TriggerAppointment)
	if err != nil {
		t.Fatalf("NotifyAppointmentCreated: %v", err)
	}
	if result.Sent != 0 || result.Failed != 0 || len(result.Attempts) != 0 {
		t.Fatalf("expected zero-activity result: %+v", result)
	}

	seedChannel(t, db, "前台群", provider.KindFeishu, okFeishuServer(t).URL, nil)
	seedChannel(t, db, "坏群", provider.KindDingTalk, failingServer(t).URL, nil)

	result, err = svc.NotifyAppointmentCreated(appt.ID, TriggerAppointment)
	if err != nil {
		t.Fatalf("NotifyAppointmentCreated: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 || len(result.Attempts) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var logCount int64
	db.Model(&models.PushLogModel{}).Where("trigger_source = ?", TriggerAppointment).Count(&logCount)
	if logCount != 2 {
		t.Fatalf("push log rows = %d, want 2", logCount)
	}
}

func TestNotifyAppointmentCreatedUnknown(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	if _, err := svc.NotifyAppointmentCreated("missing", TriggerAppointment); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want ErrAppointmentNotFound", err)
	}
}

func TestSendTestWritesAuditRow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	ch := seedChannel(t, db, "群", provider.KindDingTalk, okDingtalkServer(t).URL, nil)

	result, err := svc.SendTest(ch.Code, "测试消息")
	if err != nil {
		t.Fatalf("SendTest: %v", err)
	}
	if !result.OK {
		t.Fatalf("send failed: %s", result.Error)
	}

	var row models.PushLogModel
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("load log: %v", err)
	}
	if row.TriggerSource != TriggerManual || row.TaskID != nil {
		t.Fatalf("unexpected log row: %+v", row)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 1, -5: 1, 1: 1, 250: 250, 500: 500, 10000: 500}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Fatalf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("x", 70000)
	if got := truncate(long, maxResponseBodyLen); len(got) != 60000 {
		t.Fatalf("len = %d, want 60000", len(got))
	}
	if got := truncate("short", maxResponseBodyLen); got != "short" {
		t.Fatalf("short string changed: %q", got)
	}
	// Multi-byte text is cut on rune boundaries.
	if got := truncate(strings.Repeat("回", 10), 3); got != "回回回" {
		t.Fatalf("rune truncation: %q", got)
	}
}
