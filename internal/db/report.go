package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 日报表统一约定：
// location_id + record_date (+ 分类键) 为唯一索引，record_date 一律是 UTC 零点；
// 不使用软删除，否则被软删的行会占住唯一索引。

// InventoryLog 物资库存，每个物资每天一行
type InventoryLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LocationID uint      `gorm:"not null;uniqueIndex:idx_inventory_logs_scope,priority:1" json:"locationId"`
	RecordDate time.Time `gorm:"not null;uniqueIndex:idx_inventory_logs_scope,priority:2;index" json:"recordDate"`
	ItemName   string    `gorm:"size:64;not null;uniqueIndex:idx_inventory_logs_scope,priority:3" json:"itemName"`
	Quantity   int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (r *InventoryLog) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *InventoryLog) CategoryKey() string { return r.ItemName }
func (r *InventoryLog) IsEmpty() bool       { return r.Quantity == 0 }
func (r *InventoryLog) Values() map[string]any {
	return map[string]any{"quantity": r.Quantity}
}

// CleanRoomReport 防尘净化室（clean room）按场所类型统计
type CleanRoomReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LocationID uint      `gorm:"not null;uniqueIndex:idx_clean_room_reports_scope,priority:1" json:"locationId"`
	RecordDate time.Time `gorm:"not null;uniqueIndex:idx_clean_room_reports_scope,priority:2;index" json:"recordDate"`
	PlaceType  string    `gorm:"size:64;not null;uniqueIndex:idx_clean_room_reports_scope,priority:3" json:"placeType"`
	RoomCount  int       `gorm:"not null;default:0" json:"roomCount"`
	Capacity   int       `gorm:"not null;default:0" json:"capacity"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (r *CleanRoomReport) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *CleanRoomReport) CategoryKey() string { return r.PlaceType }
func (r *CleanRoomReport) IsEmpty() bool       { return r.RoomCount == 0 && r.Capacity == 0 }
func (r *CleanRoomReport) Values() map[string]any {
	return map[string]any{"room_count": r.RoomCount, "capacity": r.Capacity}
}

// VulnerableData 脆弱人群数量
type VulnerableData struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LocationID uint      `gorm:"not null;uniqueIndex:idx_vulnerable_data_scope,priority:1" json:"locationId"`
	RecordDate time.Time `gorm:"not null;uniqueIndex:idx_vulnerable_data_scope,priority:2;index" json:"recordDate"`
	GroupType  string    `gorm:"size:64;not null;uniqueIndex:idx_vulnerable_data_scope,priority:3" json:"groupType"`
	Count      int       `gorm:"not null;default:0" json:"count"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName 保持单数表名
func (VulnerableData) TableName() string { return "vulnerable_data" }

func (r *VulnerableData) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *VulnerableData) CategoryKey() string { return r.GroupType }
func (r *VulnerableData) IsEmpty() bool       { return r.Count == 0 }
func (r *VulnerableData) Values() map[string]any {
	return map[string]any{"count": r.Count}
}

// ActiveCareLog 主动关怀活动，一天可有多个活动
type ActiveCareLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LocationID   uint      `gorm:"not null;uniqueIndex:idx_active_care_logs_scope,priority:1" json:"locationId"`
	RecordDate   time.Time `gorm:"not null;uniqueIndex:idx_active_care_logs_scope,priority:2;index" json:"recordDate"`
	ActivityType string    `gorm:"size:64;not null;uniqueIndex:idx_active_care_logs_scope,priority:3" json:"activityType"`
	Households   int       `gorm:"not null;default:0" json:"households"`
	People       int       `gorm:"not null;default:0" json:"people"`
	Note         string    `gorm:"size:500" json:"note"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r *ActiveCareLog) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *ActiveCareLog) CategoryKey() string { return r.ActivityType }
func (r *ActiveCareLog) IsEmpty() bool {
	return r.Households == 0 && r.People == 0 && r.Note == ""
}
func (r *ActiveCareLog) Values() map[string]any {
	return map[string]any{"households": r.Households, "people": r.People, "note": r.Note}
}

// OperationLog 应急运行活动
type OperationLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LocationID uint      `gorm:"not null;uniqueIndex:idx_operation_logs_scope,priority:1" json:"locationId"`
	RecordDate time.Time `gorm:"not null;uniqueIndex:idx_operation_logs_scope,priority:2;index" json:"recordDate"`
	Activity   string    `gorm:"size:64;not null;uniqueIndex:idx_operation_logs_scope,priority:3" json:"activity"`
	Count      int       `gorm:"not null;default:0" json:"count"`
	Note       string    `gorm:"size:500" json:"note"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (r *OperationLog) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *OperationLog) CategoryKey() string { return r.Activity }
func (r *OperationLog) IsEmpty() bool       { return r.Count == 0 && r.Note == "" }
func (r *OperationLog) Values() map[string]any {
	return map[string]any{"count": r.Count, "note": r.Note}
}

// LocalAdminSupport 地方行政机构的支援（经费/物资/人力）
type LocalAdminSupport struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	LocationID  uint            `gorm:"not null;uniqueIndex:idx_local_admin_supports_scope,priority:1" json:"locationId"`
	RecordDate  time.Time       `gorm:"not null;uniqueIndex:idx_local_admin_supports_scope,priority:2;index" json:"recordDate"`
	SupportType string          `gorm:"size:64;not null;uniqueIndex:idx_local_admin_supports_scope,priority:3" json:"supportType"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"amount"`
	Note        string          `gorm:"size:500" json:"note"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (r *LocalAdminSupport) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *LocalAdminSupport) CategoryKey() string { return r.SupportType }
func (r *LocalAdminSupport) IsEmpty() bool       { return r.Amount.IsZero() && r.Note == "" }
func (r *LocalAdminSupport) Values() map[string]any {
	return map[string]any{"amount": r.Amount, "note": r.Note}
}

// StaffIncident 工作人员事件（受伤/死亡）
type StaffIncident struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LocationID   uint      `gorm:"not null;uniqueIndex:idx_staff_incidents_scope,priority:1" json:"locationId"`
	RecordDate   time.Time `gorm:"not null;uniqueIndex:idx_staff_incidents_scope,priority:2;index" json:"recordDate"`
	IncidentType string    `gorm:"size:64;not null;uniqueIndex:idx_staff_incidents_scope,priority:3" json:"incidentType"`
	Injured      int       `gorm:"not null;default:0" json:"injured"`
	Deaths       int       `gorm:"not null;default:0" json:"deaths"`
	Details      string    `gorm:"size:2000" json:"details"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (r *StaffIncident) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *StaffIncident) CategoryKey() string { return r.IncidentType }
func (r *StaffIncident) IsEmpty() bool {
	return r.Injured == 0 && r.Deaths == 0 && r.Details == ""
}
func (r *StaffIncident) Values() map[string]any {
	return map[string]any{"injured": r.Injured, "deaths": r.Deaths, "details": r.Details}
}

// Measure 公共卫生措施，仅 SSJ / ADMIN 可写
type Measure struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	LocationID  uint      `gorm:"not null;uniqueIndex:idx_measures_scope,priority:1" json:"locationId"`
	RecordDate  time.Time `gorm:"not null;uniqueIndex:idx_measures_scope,priority:2;index" json:"recordDate"`
	MeasureType string    `gorm:"size:64;not null;uniqueIndex:idx_measures_scope,priority:3" json:"measureType"`
	Status      string    `gorm:"size:32" json:"status"`
	Detail      string    `gorm:"size:2000" json:"detail"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r *Measure) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *Measure) CategoryKey() string { return r.MeasureType }
func (r *Measure) IsEmpty() bool       { return r.Status == "" && r.Detail == "" }
func (r *Measure) Values() map[string]any {
	return map[string]any{"status": r.Status, "detail": r.Detail}
}

// PheocReport 公共卫生应急指挥中心状态，每个地点每天一行
type PheocReport struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	LocationID      uint                        `gorm:"not null;uniqueIndex:idx_pheoc_reports_scope,priority:1" json:"locationId"`
	RecordDate      time.Time                   `gorm:"not null;uniqueIndex:idx_pheoc_reports_scope,priority:2;index" json:"recordDate"`
	Status          string                      `gorm:"size:32" json:"status"`
	AlertLevel      string                      `gorm:"size:32" json:"alertLevel"`
	ResponseLevel   string                      `gorm:"size:32;index" json:"responseLevel"`
	ActivatedGroups datatypes.JSONSlice[string] `json:"activatedGroups"`
	Summary         string                      `gorm:"type:text" json:"summary"`
	AttachmentURL   string                      `gorm:"size:500" json:"attachmentUrl"`
	CreatedAt       time.Time                   `json:"-"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

func (r *PheocReport) Assign(locationID uint, date time.Time) {
	r.LocationID, r.RecordDate = locationID, date
}
func (r *PheocReport) CategoryKey() string { return "" }
func (r *PheocReport) IsEmpty() bool {
	return r.Status == "" && r.AlertLevel == "" && r.ResponseLevel == "" &&
		len(r.ActivatedGroups) == 0 && r.Summary == "" && r.AttachmentURL == ""
}
func (r *PheocReport) Values() map[string]any {
	groups := r.ActivatedGroups
	if groups == nil {
		groups = datatypes.JSONSlice[string]{}
	}
	return map[string]any{
		"status":           r.Status,
		"alert_level":      r.AlertLevel,
		"response_level":   r.ResponseLevel,
		"activated_groups": groups,
		"summary":          r.Summary,
		"attachment_url":   r.AttachmentURL,
	}
}
