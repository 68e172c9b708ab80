package service

import (
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
)

// 每张日报表固定一种写入策略：
// 按分类逐行覆盖的表用 Upsert；一天内活动数量不定、由表单整体提交的表用 ReplaceAll。
var (
	inventoryTable    = reconcile.NewTable[db.InventoryLog]("inventory_logs", "item_name", reconcile.Upsert)
	cleanRoomTable    = reconcile.NewTable[db.CleanRoomReport]("clean_room_reports", "place_type", reconcile.Upsert)
	vulnerableTable   = reconcile.NewTable[db.VulnerableData]("vulnerable_data", "group_type", reconcile.Upsert)
	activeCareTable   = reconcile.NewTable[db.ActiveCareLog]("active_care_logs", "activity_type", reconcile.ReplaceAll).WithKeys(CareActivities.Keys()...)
	operationTable    = reconcile.NewTable[db.OperationLog]("operation_logs", "activity", reconcile.ReplaceAll).WithKeys(OperationActivities.Keys()...)
	localSupportTable = reconcile.NewTable[db.LocalAdminSupport]("local_admin_supports", "support_type", reconcile.Upsert)
	incidentTable     = reconcile.NewTable[db.StaffIncident]("staff_incidents", "incident_type", reconcile.Upsert)
	measureTable      = reconcile.NewTable[db.Measure]("measures", "measure_type", reconcile.Upsert)
	pheocTable        = reconcile.NewTable[db.PheocReport]("pheoc_reports", "", reconcile.Upsert)
)

// ReportTables 返回全部日报表描述，供统计与导出使用。
func ReportTables() []reconcile.Table {
	return []reconcile.Table{
		inventoryTable, cleanRoomTable, vulnerableTable, activeCareTable,
		operationTable, localSupportTable, incidentTable, measureTable, pheocTable,
	}
}
