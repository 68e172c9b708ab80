package service

import (
	"fmt"
	"io"
	"time"

	"github.com/healthportal/internal/locale"
	"github.com/healthportal/internal/reconcile"
	"github.com/xuri/excelize/v2"
)

// ExportSheets 导出工作簿的工作表顺序，首个为概要
var ExportSheets = []string{
	"Summary", "Inventory", "CleanRooms", "Vulnerable", "ActiveCare",
	"Incidents", "Operations", "LocalSupport", "Measures", "Situation",
}

// SummaryTables 把仪表盘数据展开成按面板分组的表格，首行为本地化表头。
// 页面与导出共用同一份布局。
func SummaryTables(summary *Summary, language string) map[string][][]any {
	tr := func(en, th string) string { return locale.Pick(language, en, th) }
	date := func(t time.Time) string {
		if t.IsZero() {
			return tr("all", "ทั้งหมด")
		}
		return reconcile.FormatCalendarDate(t)
	}
	filter := summary.Filter

	sheets := map[string][][]any{
		"Summary": {
			{tr("Province", "จังหวัด"), orAll(filter.Province, tr)},
			{tr("District", "อำเภอ"), orAll(filter.District, tr)},
			{tr("Sub-district", "ตำบล"), orAll(filter.SubDistrict, tr)},
			{tr("From", "ตั้งแต่"), date(filter.From)},
			{tr("To", "ถึง"), date(filter.To)},
			{tr("Reporting locations", "หน่วยที่รายงาน"), summary.ReportingLocations},
			{tr("Pending users", "ผู้ใช้รออนุมัติ"), summary.PendingUsers},
		},
	}

	rows := [][]any{{tr("Item", "รายการ"), tr("Quantity", "จำนวน")}}
	for _, r := range summary.Inventory {
		rows = append(rows, []any{InventoryItems.Label(r.Category, language), r.Total})
	}
	sheets["Inventory"] = rows

	rows = [][]any{{tr("Place", "สถานที่"), tr("Rooms", "จำนวนห้อง"), tr("Capacity", "ความจุ")}}
	for _, r := range summary.CleanRooms {
		rows = append(rows, []any{CleanRoomPlaces.Label(r.Category, language), r.RoomCount, r.Capacity})
	}
	sheets["CleanRooms"] = rows

	rows = [][]any{{tr("Group", "กลุ่ม"), tr("People", "จำนวนคน")}}
	for _, r := range summary.Vulnerable {
		rows = append(rows, []any{VulnerableGroups.Label(r.Category, language), r.Total})
	}
	sheets["Vulnerable"] = rows

	rows = [][]any{{tr("Activity", "กิจกรรม"), tr("Households", "ครัวเรือน"), tr("People", "จำนวนคน")}}
	for _, r := range summary.ActiveCare {
		rows = append(rows, []any{CareActivities.Label(r.Category, language), r.Households, r.People})
	}
	sheets["ActiveCare"] = rows

	rows = [][]any{{tr("Incident", "เหตุการณ์"), tr("Injured", "บาดเจ็บ"), tr("Deaths", "เสียชีวิต")}}
	for _, r := range summary.Incidents {
		rows = append(rows, []any{IncidentTypes.Label(r.Category, language), r.Injured, r.Deaths})
	}
	sheets["Incidents"] = rows

	rows = [][]any{{tr("Activity", "กิจกรรม"), tr("Count", "จำนวนครั้ง")}}
	for _, r := range summary.Operations {
		rows = append(rows, []any{OperationActivities.Label(r.Category, language), r.Total})
	}
	sheets["Operations"] = rows

	rows = [][]any{{tr("Support", "การสนับสนุน"), tr("Amount", "มูลค่า")}}
	for _, r := range summary.LocalSupport {
		rows = append(rows, []any{SupportTypes.Label(r.Category, language), r.Amount.InexactFloat64()})
	}
	sheets["LocalSupport"] = rows

	rows = [][]any{{tr("Measure", "มาตรการ"), tr("Status", "สถานะ"), tr("Reports", "จำนวนรายงาน")}}
	for _, r := range summary.Measures {
		rows = append(rows, []any{MeasureTypes.Label(r.Category, language), MeasureStatuses.Label(r.Status, language), r.Total})
	}
	sheets["Measures"] = rows

	rows = [][]any{{tr("Response level", "ระดับการตอบโต้"), tr("Provinces", "จำนวนจังหวัด")}}
	for _, r := range summary.Situation.Levels {
		label := ResponseLevels.Label(r.Category, language)
		if r.Category == NoReportLevel {
			label = tr("No report", "ยังไม่รายงาน")
		}
		rows = append(rows, []any{label, r.Total})
	}
	sheets["Situation"] = rows
	return sheets
}

// WriteSummaryXLSX 将仪表盘数据写成 xlsx，每个面板一个工作表
func WriteSummaryXLSX(w io.Writer, summary *Summary, language string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheets[0]); err != nil {
		return err
	}
	for _, name := range ExportSheets[1:] {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	sheets := SummaryTables(summary, language)
	for _, name := range ExportSheets {
		for i, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return fmt.Errorf("write sheet %s: %w", name, err)
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func orAll(value string, tr func(en, th string) string) string {
	if value == "" {
		return tr("all", "ทั้งหมด")
	}
	return value
}
