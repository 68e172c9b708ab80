package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Filter 仪表盘筛选条件，空字段表示不限
type Filter struct {
	Province    string
	District    string
	SubDistrict string
	From        time.Time
	To          time.Time
}

// CountRow 某分类的合计
type CountRow struct {
	Category string `json:"category"`
	Total    int64  `json:"total"`
}

// CleanRoomRow 净化室合计
type CleanRoomRow struct {
	Category  string `json:"category"`
	RoomCount int64  `json:"roomCount"`
	Capacity  int64  `json:"capacity"`
}

// CareRow 主动关怀合计
type CareRow struct {
	Category   string `json:"category"`
	Households int64  `json:"households"`
	People     int64  `json:"people"`
}

// IncidentRow 事件合计
type IncidentRow struct {
	Category string `json:"category"`
	Injured  int64  `json:"injured"`
	Deaths   int64  `json:"deaths"`
}

// AmountRow 支援金额合计
type AmountRow struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MeasureRow 措施按状态计数
type MeasureRow struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Total    int64  `json:"total"`
}

// Situation 全局态势：各响应级别下的省份数量，不受筛选影响
type Situation struct {
	Levels         []CountRow `json:"levels"`
	TotalProvinces int        `json:"totalProvinces"`
}

// Summary 仪表盘全部面板
type Summary struct {
	Filter             Filter         `json:"-"`
	Inventory          []CountRow     `json:"inventory"`
	CleanRooms         []CleanRoomRow `json:"cleanRooms"`
	Vulnerable         []CountRow     `json:"vulnerable"`
	ActiveCare         []CareRow      `json:"activeCare"`
	Incidents          []IncidentRow  `json:"incidents"`
	Operations         []CountRow     `json:"operations"`
	LocalSupport       []AmountRow    `json:"localSupport"`
	Measures           []MeasureRow   `json:"measures"`
	ReportingLocations int64          `json:"reportingLocations"`
	Situation          Situation      `json:"situation"`
	PendingUsers       int64          `json:"pendingUsers"`
}

// DashboardService 只读统计，不做缓存
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService 构造 DashboardService
func NewDashboardService(gdb *gorm.DB) *DashboardService {
	return &DashboardService{db: gdb}
}

// Summary 计算所有面板。没有 location:any 的角色只能看到自己所属层级内的数据；态势面板始终是全局的
func (s *DashboardService) Summary(p *access.Principal, filter Filter) (*Summary, error) {
	if err := access.Authorize(p, access.DashboardView, 0); err != nil {
		return nil, err
	}
	filter, err := s.clampFilter(p, filter)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Filter: filter}

	// 库存、净化室、人群为存量：每个地点取区间内最近一天，再跨地点求和
	if err := s.latestSum("inventory_logs", "item_name", "SUM(t.quantity) AS total", filter, &summary.Inventory); err != nil {
		return nil, err
	}
	if err := s.latestSum("clean_room_reports", "place_type", "SUM(t.room_count) AS room_count, SUM(t.capacity) AS capacity", filter, &summary.CleanRooms); err != nil {
		return nil, err
	}
	if err := s.latestSum("vulnerable_data", "group_type", "SUM(t.count) AS total", filter, &summary.Vulnerable); err != nil {
		return nil, err
	}

	// 活动、事件、支援为流量：区间内直接求和
	if err := s.rangeSum("active_care_logs", "activity_type", "SUM(t.households) AS households, SUM(t.people) AS people", filter, &summary.ActiveCare); err != nil {
		return nil, err
	}
	if err := s.rangeSum("staff_incidents", "incident_type", "SUM(t.injured) AS injured, SUM(t.deaths) AS deaths", filter, &summary.Incidents); err != nil {
		return nil, err
	}
	if err := s.rangeSum("operation_logs", "activity", "SUM(t.count) AS total", filter, &summary.Operations); err != nil {
		return nil, err
	}
	if err := s.rangeSum("local_admin_supports", "support_type", "SUM(t.amount) AS amount", filter, &summary.LocalSupport); err != nil {
		return nil, err
	}
	if err := s.measureCounts(filter, &summary.Measures); err != nil {
		return nil, err
	}

	count, err := s.reportingLocations(filter)
	if err != nil {
		return nil, err
	}
	summary.ReportingLocations = count

	situation, err := s.GlobalSituation()
	if err != nil {
		return nil, err
	}
	summary.Situation = situation

	if access.Can(p.Role, access.UserApprove) {
		pending, err := countPendingUsers(s.db)
		if err != nil {
			return nil, err
		}
		summary.PendingUsers = pending
	}

	return summary, nil
}

// clampFilter 将无跨地点权限的调用者限制在自己地点的层级内，占位层级表示整层
func (s *DashboardService) clampFilter(p *access.Principal, filter Filter) (Filter, error) {
	filter.Province = strings.TrimSpace(filter.Province)
	filter.District = strings.TrimSpace(filter.District)
	filter.SubDistrict = strings.TrimSpace(filter.SubDistrict)
	if !filter.From.IsZero() {
		filter.From = reconcile.NormalizeToCalendarDate(filter.From)
	}
	if !filter.To.IsZero() {
		filter.To = reconcile.NormalizeToCalendarDate(filter.To)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.From.After(filter.To) {
		filter.From, filter.To = filter.To, filter.From
	}

	if access.Can(p.Role, access.AnyLocation) {
		return filter, nil
	}

	loc, err := getLocation(s.db, p.LocationID)
	if err != nil {
		return filter, err
	}
	filter.Province = loc.ProvinceName
	if loc.DistrictName != db.LocationPlaceholder {
		filter.District = loc.DistrictName
	}
	if loc.SubDistrict != db.LocationPlaceholder {
		filter.SubDistrict = loc.SubDistrict
	}
	return filter, nil
}

// scoped 以 t 为别名关联 locations 并应用筛选
func scoped(gdb *gorm.DB, table string, filter Filter) *gorm.DB {
	q := gdb.Table(table + " AS t").Joins("JOIN locations l ON l.id = t.location_id")
	if filter.Province != "" {
		q = q.Where("l.province_name = ?", filter.Province)
	}
	if filter.District != "" {
		q = q.Where("l.district_name = ?", filter.District)
	}
	if filter.SubDistrict != "" {
		q = q.Where("l.sub_district = ?", filter.SubDistrict)
	}
	if !filter.From.IsZero() {
		q = q.Where("t.record_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("t.record_date <= ?", filter.To)
	}
	return q
}

func (s *DashboardService) rangeSum(table, keyColumn, aggregates string, filter Filter, dest any) error {
	err := scoped(s.db, table, filter).
		Select(fmt.Sprintf("t.%s AS category, %s", keyColumn, aggregates)).
		Group("t." + keyColumn).
		Order("category ASC").
		Scan(dest).Error
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", table, err)
	}
	return nil
}

func (s *DashboardService) latestSum(table, keyColumn, aggregates string, filter Filter, dest any) error {
	latest := scoped(s.db, table, filter).
		Select("t.location_id, MAX(t.record_date) AS record_date").
		Group("t.location_id")

	err := scoped(s.db, table, filter).
		Joins("JOIN (?) latest ON latest.location_id = t.location_id AND latest.record_date = t.record_date", latest).
		Select(fmt.Sprintf("t.%s AS category, %s", keyColumn, aggregates)).
		Group("t." + keyColumn).
		Order("category ASC").
		Scan(dest).Error
	if err != nil {
		return fmt.Errorf("aggregate latest %s: %w", table, err)
	}
	return nil
}

func (s *DashboardService) measureCounts(filter Filter, dest *[]MeasureRow) error {
	err := scoped(s.db, "measures", filter).
		Where("t.status <> ''").
		Select("t.measure_type AS category, t.status AS status, COUNT(*) AS total").
		Group("t.measure_type, t.status").
		Order("category ASC, status ASC").
		Scan(dest).Error
	if err != nil {
		return fmt.Errorf("aggregate measures: %w", err)
	}
	return nil
}

// reportingLocations 统计区间内在任意日报表中有数据的地点数
func (s *DashboardService) reportingLocations(filter Filter) (int64, error) {
	seen := make(map[uint]struct{})
	for _, table := range ReportTables() {
		var ids []uint
		if err := scoped(s.db, table.Name, filter).Distinct("t.location_id").Pluck("t.location_id", &ids).Error; err != nil {
			return 0, fmt.Errorf("reporting locations %s: %w", table.Name, err)
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

type provinceReport struct {
	ProvinceName  string
	ResponseLevel string
}

// GlobalSituation 每个省取其下任意地点最新一份 PHEOC 报告的响应级别，按级别统计省份数
func (s *DashboardService) GlobalSituation() (Situation, error) {
	var provinces []string
	if err := s.db.Model(&db.Location{}).
		Where("province_name <> ?", db.LocationPlaceholder).
		Distinct("province_name").
		Pluck("province_name", &provinces).Error; err != nil {
		return Situation{}, fmt.Errorf("situation provinces: %w", err)
	}

	var reports []provinceReport
	if err := s.db.Table("pheoc_reports AS t").
		Joins("JOIN locations l ON l.id = t.location_id").
		Select("l.province_name, t.response_level").
		Order("t.record_date DESC, t.updated_at DESC").
		Scan(&reports).Error; err != nil {
		return Situation{}, fmt.Errorf("situation reports: %w", err)
	}

	latest := make(map[string]string, len(provinces))
	for _, r := range reports {
		if _, ok := latest[r.ProvinceName]; !ok {
			latest[r.ProvinceName] = r.ResponseLevel
		}
	}

	counts := make(map[string]int64)
	for _, province := range provinces {
		level := latest[province]
		if level == "" {
			level = NoReportLevel
		}
		counts[level]++
	}

	levels := make([]CountRow, 0, len(ResponseLevels)+1)
	for _, cat := range ResponseLevels {
		levels = append(levels, CountRow{Category: cat.Key, Total: counts[cat.Key]})
		delete(counts, cat.Key)
	}
	noReport := counts[NoReportLevel]
	delete(counts, NoReportLevel)
	// 目录外的历史级别值按字母序追加
	extra := make([]string, 0, len(counts))
	for level := range counts {
		extra = append(extra, level)
	}
	sort.Strings(extra)
	for _, level := range extra {
		levels = append(levels, CountRow{Category: level, Total: counts[level]})
	}
	levels = append(levels, CountRow{Category: NoReportLevel, Total: noReport})

	return Situation{Levels: levels, TotalProvinces: len(provinces)}, nil
}
