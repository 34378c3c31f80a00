package dispatch

import (
	"fmt"
	"strings"

	"github.com/mendian-cloud/core/internal/models"
	"gorm.io/gorm"
)

const (
	messageTimeLayout    = "2006-01-02 15:04"
	defaultFollowupTitle = "回访任务"
)

var apptSourceLabels = map[string]string{
	models.ApptSourceMiniProgram: "小程序",
	models.ApptSourceWechat:      "微信",
	models.ApptSourcePhone:       "电话",
	models.ApptSourceWalkIn:      "到店",
}

// followupContext carries the joined rows needed to render a follow-up message.
// Any of the references may be nil when the CRM row is gone.
type followupContext struct {
	Task        *models.FollowupTaskModel
	Store       *models.StoreModel
	Customer    *models.CustomerModel
	Appointment *models.AppointmentModel
}

func (s *Service) loadFollowupContext(task *models.FollowupTaskModel) followupContext {
	return followupContext{
		Task:        task,
		Store:       findByID[models.StoreModel](s.db, task.StoreID),
		Customer:    findByID[models.CustomerModel](s.db, task.CustomerID),
		Appointment: findByID[models.AppointmentModel](s.db, task.AppointmentID),
	}
}

func findByID[T any](db *gorm.DB, id string) *T {
	if id == "" {
		return nil
	}
	var row T
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		return nil
	}
	return &row
}

// buildFollowupMessage renders the staff reminder for a due follow-up task.
// Absent fields render as "-".
func buildFollowupMessage(fc followupContext) string {
	title := strings.TrimSpace(fc.Task.Title)
	if title == "" {
		title = defaultFollowupTitle
	}

	customer := "-"
	if fc.Customer != nil {
		customer = orDash(fc.Customer.Name)
		if fc.Customer.Mobile != "" {
			customer = fmt.Sprintf("%s（%s）", customer, fc.Customer.Mobile)
		}
	}
	apptNo := "-"
	if fc.Appointment != nil {
		apptNo = orDash(fc.Appointment.ApptNo)
	}
	storeName := "-"
	if fc.Store != nil {
		storeName = orDash(fc.Store.Name)
	}

	var b strings.Builder
	b.WriteString("【门店通知】回访提醒\n")
	fmt.Fprintf(&b, "门店：%s\n", storeName)
	fmt.Fprintf(&b, "客户：%s\n", customer)
	fmt.Fprintf(&b, "任务：%s\n", title)
	fmt.Fprintf(&b, "回访时间：%s\n", fc.Task.DueAt.Format(messageTimeLayout))
	fmt.Fprintf(&b, "关联预约：%s", apptNo)
	if note := strings.TrimSpace(fc.Task.Content); note != "" {
		fmt.Fprintf(&b, "\n备注：%s", note)
	}
	return b.String()
}

// buildAppointmentMessage renders the broadcast for a freshly created appointment.
func buildAppointmentMessage(appt *models.AppointmentModel, store *models.StoreModel, customer *models.CustomerModel) string {
	customerText := "-"
	if customer != nil {
		customerText = orDash(customer.Name)
		if customer.Mobile != "" {
			customerText = fmt.Sprintf("%s（%s）", customerText, customer.Mobile)
		}
	}
	storeName := "-"
	if store != nil {
		storeName = orDash(store.Name)
	}

	window := "-"
	if !appt.StartAt.IsZero() {
		window = appt.StartAt.Format(messageTimeLayout)
		if !appt.EndAt.IsZero() {
			window += " ~ " + appt.EndAt.Format(messageTimeLayout)
		}
	}

	var b strings.Builder
	b.WriteString("【门店通知】新预约\n")
	fmt.Fprintf(&b, "门店：%s\n", storeName)
	fmt.Fprintf(&b, "客户：%s\n", customerText)
	fmt.Fprintf(&b, "服务项目：%s\n", orDash(appt.ServiceName))
	fmt.Fprintf(&b, "预约时间：%s\n", window)
	fmt.Fprintf(&b, "预约单号：%s\n", orDash(appt.ApptNo))
	fmt.Fprintf(&b, "来源：%s\n", sourceLabel(appt.Source))
	fmt.Fprintf(&b, "接待员工：%s", orDash(appt.StaffName))
	if remark := strings.TrimSpace(appt.Remark); remark != "" {
		fmt.Fprintf(&b, "\n备注：%s", remark)
	}
	return b.String()
}

func sourceLabel(source string) string {
	if label, ok := apptSourceLabels[source]; ok {
		return label
	}
	return orDash(source)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
