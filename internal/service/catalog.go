package service

import "github.com/healthportal/internal/locale"

// Category 是表单中的一个固定分类，Key 落库，标签按语言展示。
type Category struct {
	Key     string `json:"key"`
	Thai    string `json:"th"`
	English string `json:"en"`
}

// Label 返回当前语言的标签。
func (c Category) Label(language string) string {
	return locale.Pick(language, c.English, c.Thai)
}

// Catalog 有序的分类集合，顺序即表单展示顺序。
type Catalog []Category

// Keys 返回全部分类键。
func (c Catalog) Keys() []string {
	keys := make([]string, len(c))
	for i, cat := range c {
		keys[i] = cat.Key
	}
	return keys
}

// Has 判断分类键是否合法。
func (c Catalog) Has(key string) bool {
	for _, cat := range c {
		if cat.Key == key {
			return true
		}
	}
	return false
}

// Label 返回分类键的标签，未知键原样返回。
func (c Catalog) Label(key, language string) string {
	for _, cat := range c {
		if cat.Key == key {
			return cat.Label(language)
		}
	}
	return key
}

var (
	InventoryItems = Catalog{
		{Key: "surgical_mask", Thai: "หน้ากากอนามัย", English: "Surgical masks"},
		{Key: "n95_mask", Thai: "หน้ากาก N95", English: "N95 masks"},
		{Key: "child_mask", Thai: "หน้ากากเด็ก", English: "Child masks"},
		{Key: "air_purifier", Thai: "เครื่องฟอกอากาศ", English: "Air purifiers"},
		{Key: "oxygen_concentrator", Thai: "เครื่องผลิตออกซิเจน", English: "Oxygen concentrators"},
		{Key: "nebulizer", Thai: "เครื่องพ่นยา", English: "Nebulizers"},
	}

	CleanRoomPlaces = Catalog{
		{Key: "hospital", Thai: "โรงพยาบาล", English: "Hospital"},
		{Key: "health_center", Thai: "รพ.สต.", English: "Health promoting hospital"},
		{Key: "school", Thai: "โรงเรียน", English: "School"},
		{Key: "child_center", Thai: "ศูนย์พัฒนาเด็กเล็ก", English: "Child development center"},
		{Key: "government_office", Thai: "สถานที่ราชการ", English: "Government office"},
		{Key: "community", Thai: "ชุมชน", English: "Community"},
	}

	VulnerableGroups = Catalog{
		{Key: "children_under5", Thai: "เด็กเล็กอายุต่ำกว่า 5 ปี", English: "Children under 5"},
		{Key: "elderly", Thai: "ผู้สูงอายุ", English: "Elderly"},
		{Key: "pregnant", Thai: "หญิงตั้งครรภ์", English: "Pregnant women"},
		{Key: "bedridden", Thai: "ผู้ป่วยติดเตียง", English: "Bedridden patients"},
		{Key: "respiratory", Thai: "ผู้ป่วยโรคระบบทางเดินหายใจ", English: "Respiratory patients"},
		{Key: "cardiovascular", Thai: "ผู้ป่วยโรคหัวใจและหลอดเลือด", English: "Cardiovascular patients"},
	}

	CareActivities = Catalog{
		{Key: "home_visit", Thai: "เยี่ยมบ้าน", English: "Home visits"},
		{Key: "mask_distribution", Thai: "แจกหน้ากาก", English: "Mask distribution"},
		{Key: "health_education", Thai: "ให้ความรู้", English: "Health education"},
		{Key: "screening", Thai: "คัดกรอง", English: "Screening"},
		{Key: "referral", Thai: "ส่งต่อ", English: "Referral"},
	}

	OperationActivities = Catalog{
		{Key: "eoc_meeting", Thai: "ประชุม EOC", English: "EOC meeting"},
		{Key: "field_survey", Thai: "ลงพื้นที่สำรวจ", English: "Field survey"},
		{Key: "risk_communication", Thai: "สื่อสารความเสี่ยง", English: "Risk communication"},
		{Key: "air_quality_monitoring", Thai: "เฝ้าระวังคุณภาพอากาศ", English: "Air quality monitoring"},
		{Key: "mobile_clinic", Thai: "หน่วยแพทย์เคลื่อนที่", English: "Mobile clinic"},
	}

	SupportTypes = Catalog{
		{Key: "budget", Thai: "งบประมาณ", English: "Budget"},
		{Key: "supplies", Thai: "วัสดุอุปกรณ์", English: "Supplies"},
		{Key: "personnel", Thai: "บุคลากร", English: "Personnel"},
		{Key: "vehicles", Thai: "ยานพาหนะ", English: "Vehicles"},
	}

	IncidentTypes = Catalog{
		{Key: "road_accident", Thai: "อุบัติเหตุทางถนน", English: "Road accident"},
		{Key: "assault", Thai: "ถูกทำร้าย", English: "Assault"},
		{Key: "exposure_illness", Thai: "เจ็บป่วยจากการสัมผัส", English: "Exposure illness"},
		{Key: "other", Thai: "อื่น ๆ", English: "Other"},
	}

	MeasureTypes = Catalog{
		{Key: "work_from_home", Thai: "ทำงานที่บ้าน", English: "Work from home"},
		{Key: "school_closure", Thai: "ปิดโรงเรียน", English: "School closure"},
		{Key: "outdoor_ban", Thai: "งดกิจกรรมกลางแจ้ง", English: "Outdoor activity ban"},
		{Key: "burning_ban", Thai: "ห้ามเผาในที่โล่ง", English: "Open burning ban"},
		{Key: "public_warning", Thai: "แจ้งเตือนประชาชน", English: "Public warning"},
	}

	MeasureStatuses = Catalog{
		{Key: "not_started", Thai: "ยังไม่ดำเนินการ", English: "Not started"},
		{Key: "in_progress", Thai: "กำลังดำเนินการ", English: "In progress"},
		{Key: "completed", Thai: "ดำเนินการแล้ว", English: "Completed"},
	}

	PheocStatuses = Catalog{
		{Key: "not_activated", Thai: "ยังไม่เปิด", English: "Not activated"},
		{Key: "activated", Thai: "เปิดศูนย์", English: "Activated"},
		{Key: "deactivated", Thai: "ปิดศูนย์", English: "Deactivated"},
	}

	AlertLevels = Catalog{
		{Key: "green", Thai: "เขียว", English: "Green"},
		{Key: "yellow", Thai: "เหลือง", English: "Yellow"},
		{Key: "orange", Thai: "ส้ม", English: "Orange"},
		{Key: "red", Thai: "แดง", English: "Red"},
	}

	ResponseLevels = Catalog{
		{Key: "level0", Thai: "ระดับ 0 เฝ้าระวัง", English: "Level 0 monitoring"},
		{Key: "level1", Thai: "ระดับ 1", English: "Level 1"},
		{Key: "level2", Thai: "ระดับ 2", English: "Level 2"},
		{Key: "level3", Thai: "ระดับ 3", English: "Level 3"},
	}

	PheocGroups = Catalog{
		{Key: "operations", Thai: "กลุ่มปฏิบัติการ", English: "Operations"},
		{Key: "planning", Thai: "กลุ่มแผน", English: "Planning"},
		{Key: "logistics", Thai: "กลุ่มสนับสนุน", English: "Logistics"},
		{Key: "finance_admin", Thai: "กลุ่มการเงินและธุรการ", English: "Finance and admin"},
		{Key: "risk_communication", Thai: "กลุ่มสื่อสารความเสี่ยง", English: "Risk communication"},
		{Key: "liaison", Thai: "กลุ่มประสานงาน", English: "Liaison"},
	}
)

// NoReportLevel 在态势面板中表示该省尚无 PHEOC 报告。
const NoReportLevel = "no_report"
