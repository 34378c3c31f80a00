package models

import "time"

// Appointment sources, used only to render a human-readable label in messages.
const (
	ApptSourceMiniProgram = "mini_program"
	ApptSourceWechat      = "wechat"
	ApptSourcePhone       = "phone"
	ApptSourceWalkIn      = "walk_in"
)

// StoreModel is the store a customer visits. Owned by the CRM side.
type StoreModel struct {
	Base
	Name string `json:"name" gorm:"not null"`
}

func (StoreModel) TableName() string { return "stores" }

// CustomerModel carries just the fields needed for notification context.
type CustomerModel struct {
	Base
	Name   string `json:"name" gorm:"not null"`
	Mobile string `json:"mobile" gorm:"size:32;index"`
}

func (CustomerModel) TableName() string { return "customers" }

// AppointmentModel is a booked service visit. Owned by the CRM side; the
// dispatch core only reads it for message context.
type AppointmentModel struct {
	Base
	ApptNo      string    `json:"appt_no"      gorm:"uniqueIndex;size:64"`
	StoreID     string    `json:"store_id"     gorm:"type:char(36);index"`
	CustomerID  string    `json:"customer_id"  gorm:"type:char(36);index"`
	ServiceName string    `json:"service_name"`
	StaffName   string    `json:"staff_name"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Source      string    `json:"source"       gorm:"size:32"`
	Remark      string    `json:"remark"       gorm:"type:text"`
	Status      string    `json:"status"       gorm:"size:16"`
}

func (AppointmentModel) TableName() string { return "appointments" }
