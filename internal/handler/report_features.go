package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/service"
)

// reportStore 各日报服务共有的删除与历史查询。
type reportStore interface {
	Feature() string
	Delete(p *access.Principal, locationID uint, date time.Time) (int64, error)
	History(p *access.Principal, locationID uint) ([]time.Time, error)
}

// reportFeature 一个日报页面：表单布局、解析与读写。
type reportFeature struct {
	name     string
	title    [2]string
	writeCap access.Capability
	store    reportStore
	sections func(lang string) []formSection
	save     func(c *gin.Context, p *access.Principal, locationID uint, date time.Time) (reconcile.Outcome, error)
	load     func(p *access.Principal, locationID uint, date time.Time) (any, formValues, error)
}

var (
	labelCount      = [2]string{"Count", "จำนวน"}
	labelCapacity   = [2]string{"Capacity (people)", "รองรับได้ (คน)"}
	labelRooms      = [2]string{"Rooms", "จำนวนห้อง"}
	labelHouseholds = [2]string{"Households", "ครัวเรือน"}
	labelPeople     = [2]string{"People", "คน"}
	labelNote       = [2]string{"Note", "หมายเหตุ"}
	labelAmount     = [2]string{"Amount (THB)", "จำนวนเงิน (บาท)"}
	labelInjured    = [2]string{"Injured", "บาดเจ็บ"}
	labelDeaths     = [2]string{"Deaths", "เสียชีวิต"}
	labelDetails    = [2]string{"Details", "รายละเอียด"}
	labelStatus     = [2]string{"Status", "สถานะ"}
)

func (a *API) registerFeatures() {
	features := []*reportFeature{
		a.inventoryFeature(),
		a.vulnerableFeature(),
		a.activeCareFeature(),
		a.operationsFeature(),
		a.incidentFeature(),
		a.measureFeature(),
		a.pheocFeature(),
	}
	a.features = make(map[string]*reportFeature, len(features))
	a.featureOrder = make([]string, 0, len(features))
	for _, f := range features {
		a.features[f.name] = f
		a.featureOrder = append(a.featureOrder, f.name)
	}
}

type menuItem struct {
	Name  string
	Title string
	URL   string
}

// menu 只列出当前角色可写的日报。
func (a *API) menu(c *gin.Context, p *access.Principal) []menuItem {
	lang := a.language(c)
	items := make([]menuItem, 0, len(a.featureOrder))
	for _, name := range a.featureOrder {
		f := a.features[name]
		if !access.Can(p.Role, f.writeCap) {
			continue
		}
		items = append(items, menuItem{Name: name, Title: pickPair(lang, f.title), URL: "/reports/" + name})
	}
	return items
}

func formInt(n int) string {
	return strconv.Itoa(n)
}

func (a *API) inventoryFeature() *reportFeature {
	return &reportFeature{
		name:     "inventory",
		title:    [2]string{"Supplies & clean rooms", "เวชภัณฑ์และห้องปลอดฝุ่น"},
		writeCap: access.ReportWrite,
		store:    a.inventory,
		sections: func(lang string) []formSection {
			return []formSection{
				{Title: pickPair(lang, [2]string{"Supplies in stock", "เวชภัณฑ์คงคลัง"}), Rows: countRows(service.InventoryItems, lang, "item")},
				{Title: pickPair(lang, [2]string{"Clean rooms", "ห้องปลอดฝุ่น"}), Rows: catalogRows(service.CleanRoomPlaces, lang, "room",
					fieldSpec{"count", kindCount, labelRooms}, fieldSpec{"capacity", kindCount, labelCapacity})},
			}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			input := service.InventoryInput{Items: map[string]int{}, CleanRooms: map[string]service.CleanRoomInput{}}
			for _, key := range service.InventoryItems.Keys() {
				n, err := parseCount(c.PostForm("item_" + key))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				input.Items[key] = n
			}
			for _, key := range service.CleanRoomPlaces.Keys() {
				rooms, err := parseCount(c.PostForm("room_" + key + "_count"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				capacity, err := parseCount(c.PostForm("room_" + key + "_capacity"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				input.CleanRooms[key] = service.CleanRoomInput{RoomCount: rooms, Capacity: capacity}
			}
			return a.inventory.Save(p, loc, date, input)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			report, err := a.inventory.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range report.Items {
				values["item_"+row.ItemName] = formInt(row.Quantity)
			}
			for _, row := range report.CleanRooms {
				values["room_"+row.PlaceType+"_count"] = formInt(row.RoomCount)
				values["room_"+row.PlaceType+"_capacity"] = formInt(row.Capacity)
			}
			return report, values, nil
		},
	}
}

func parseGroupCounts(c *gin.Context) (map[string]int, error) {
	counts := make(map[string]int, len(service.VulnerableGroups))
	for _, key := range service.VulnerableGroups.Keys() {
		n, err := parseCount(c.PostForm("group_" + key))
		if err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, nil
}

func (a *API) vulnerableFeature() *reportFeature {
	return &reportFeature{
		name:     "vulnerable",
		title:    [2]string{"Vulnerable groups", "กลุ่มเปราะบาง"},
		writeCap: access.ReportWrite,
		store:    a.vulnerable,
		sections: func(lang string) []formSection {
			return []formSection{{Title: pickPair(lang, [2]string{"People in vulnerable groups", "จำนวนกลุ่มเปราะบาง"}), Rows: countRows(service.VulnerableGroups, lang, "group")}}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			counts, err := parseGroupCounts(c)
			if err != nil {
				return reconcile.Outcome{}, err
			}
			return a.vulnerable.Save(p, loc, date, counts)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			rows, err := a.vulnerable.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range rows {
				values["group_"+row.GroupType] = formInt(row.Count)
			}
			return rows, values, nil
		},
	}
}

func (a *API) activeCareFeature() *reportFeature {
	return &reportFeature{
		name:     "active-care",
		title:    [2]string{"Active care", "การดูแลเชิงรุก"},
		writeCap: access.ReportWrite,
		store:    a.activeCare,
		sections: func(lang string) []formSection {
			return []formSection{{Title: pickPair(lang, [2]string{"Activities today", "กิจกรรมวันนี้"}), Rows: catalogRows(service.CareActivities, lang, "care",
				fieldSpec{"households", kindCount, labelHouseholds}, fieldSpec{"people", kindCount, labelPeople}, fieldSpec{"note", kindText, labelNote})}}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			entries := make([]service.ActiveCareInput, 0, len(service.CareActivities))
			for _, key := range service.CareActivities.Keys() {
				households, err := parseCount(c.PostForm("care_" + key + "_households"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				people, err := parseCount(c.PostForm("care_" + key + "_people"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				note := strings.TrimSpace(c.PostForm("care_" + key + "_note"))
				// 当天整体替换：全空的活动视为未开展
				if households == 0 && people == 0 && note == "" {
					continue
				}
				entries = append(entries, service.ActiveCareInput{ActivityType: key, Households: households, People: people, Note: note})
			}
			return a.activeCare.Save(p, loc, date, entries)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			rows, err := a.activeCare.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range rows {
				prefix := "care_" + row.ActivityType + "_"
				values[prefix+"households"] = formInt(row.Households)
				values[prefix+"people"] = formInt(row.People)
				values[prefix+"note"] = row.Note
			}
			return rows, values, nil
		},
	}
}

func (a *API) operationsFeature() *reportFeature {
	return &reportFeature{
		name:     "operations",
		title:    [2]string{"Operations", "การดำเนินงาน"},
		writeCap: access.ReportWrite,
		store:    a.operations,
		sections: func(lang string) []formSection {
			return []formSection{
				{Title: pickPair(lang, [2]string{"Operational activities", "กิจกรรมการดำเนินงาน"}), Rows: catalogRows(service.OperationActivities, lang, "op",
					fieldSpec{"count", kindCount, labelCount}, fieldSpec{"note", kindText, labelNote})},
				{Title: pickPair(lang, [2]string{"Local administration support", "การสนับสนุนจาก อปท."}), Rows: catalogRows(service.SupportTypes, lang, "support",
					fieldSpec{"amount", kindAmount, labelAmount}, fieldSpec{"note", kindText, labelNote})},
				{Title: pickPair(lang, [2]string{"Vulnerable groups", "กลุ่มเปราะบาง"}), Rows: append(countRows(service.VulnerableGroups, lang, "group"),
					formRow{Fields: []formField{{Name: "includeVulnerable", Kind: kindHidden, Value: "1"}}})},
			}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			var input service.OperationsInput
			for _, key := range service.OperationActivities.Keys() {
				count, err := parseCount(c.PostForm("op_" + key + "_count"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				note := strings.TrimSpace(c.PostForm("op_" + key + "_note"))
				if count == 0 && note == "" {
					continue
				}
				input.Activities = append(input.Activities, service.OperationInput{Activity: key, Count: count, Note: note})
			}
			input.Support = make(map[string]service.SupportInput, len(service.SupportTypes))
			for _, key := range service.SupportTypes.Keys() {
				amount, err := parseAmount(c.PostForm("support_" + key + "_amount"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				input.Support[key] = service.SupportInput{Amount: amount, Note: c.PostForm("support_" + key + "_note")}
			}
			if c.PostForm("includeVulnerable") == "1" {
				counts, err := parseGroupCounts(c)
				if err != nil {
					return reconcile.Outcome{}, err
				}
				input.Vulnerable = counts
			}
			return a.operations.Save(p, loc, date, input)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			report, err := a.operations.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range report.Activities {
				values["op_"+row.Activity+"_count"] = formInt(row.Count)
				values["op_"+row.Activity+"_note"] = row.Note
			}
			for _, row := range report.Support {
				values["support_"+row.SupportType+"_amount"] = row.Amount.StringFixed(2)
				values["support_"+row.SupportType+"_note"] = row.Note
			}
			for _, row := range report.Vulnerable {
				values["group_"+row.GroupType] = formInt(row.Count)
			}
			return report, values, nil
		},
	}
}

func (a *API) incidentFeature() *reportFeature {
	return &reportFeature{
		name:     "incidents",
		title:    [2]string{"Staff incidents", "เหตุการณ์ที่เกิดกับเจ้าหน้าที่"},
		writeCap: access.ReportWrite,
		store:    a.incidents,
		sections: func(lang string) []formSection {
			return []formSection{{Title: pickPair(lang, [2]string{"Incidents", "เหตุการณ์"}), Rows: catalogRows(service.IncidentTypes, lang, "incident",
				fieldSpec{"injured", kindCount, labelInjured}, fieldSpec{"deaths", kindCount, labelDeaths}, fieldSpec{"details", kindTextarea, labelDetails})}}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			input := make(map[string]service.IncidentInput, len(service.IncidentTypes))
			for _, key := range service.IncidentTypes.Keys() {
				injured, err := parseCount(c.PostForm("incident_" + key + "_injured"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				deaths, err := parseCount(c.PostForm("incident_" + key + "_deaths"))
				if err != nil {
					return reconcile.Outcome{}, err
				}
				input[key] = service.IncidentInput{Injured: injured, Deaths: deaths, Details: c.PostForm("incident_" + key + "_details")}
			}
			return a.incidents.Save(p, loc, date, input)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			rows, err := a.incidents.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range rows {
				prefix := "incident_" + row.IncidentType + "_"
				values[prefix+"injured"] = formInt(row.Injured)
				values[prefix+"deaths"] = formInt(row.Deaths)
				values[prefix+"details"] = row.Details
			}
			return rows, values, nil
		},
	}
}

func (a *API) measureFeature() *reportFeature {
	return &reportFeature{
		name:     "measures",
		title:    [2]string{"Public measures", "มาตรการ"},
		writeCap: access.MeasureWrite,
		store:    a.measures,
		sections: func(lang string) []formSection {
			rows := make([]formRow, 0, len(service.MeasureTypes))
			for _, cat := range service.MeasureTypes {
				rows = append(rows, formRow{Label: cat.Label(lang), Fields: []formField{
					{Name: "measure_" + cat.Key + "_status", Label: pickPair(lang, labelStatus), Kind: kindSelect, Options: catalogOptions(service.MeasureStatuses, lang, true)},
					{Name: "measure_" + cat.Key + "_detail", Label: pickPair(lang, labelDetails), Kind: kindTextarea},
				}})
			}
			return []formSection{{Title: pickPair(lang, [2]string{"Measures", "มาตรการ"}), Rows: rows}}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			input := make(map[string]service.MeasureInput, len(service.MeasureTypes))
			for _, key := range service.MeasureTypes.Keys() {
				input[key] = service.MeasureInput{
					Status: strings.TrimSpace(c.PostForm("measure_" + key + "_status")),
					Detail: c.PostForm("measure_" + key + "_detail"),
				}
			}
			return a.measures.Save(p, loc, date, input)
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			rows, err := a.measures.Get(p, loc, date)
			if err != nil {
				return nil, nil, err
			}
			values := formValues{}
			for _, row := range rows {
				values["measure_"+row.MeasureType+"_status"] = row.Status
				values["measure_"+row.MeasureType+"_detail"] = row.Detail
			}
			return rows, values, nil
		},
	}
}

func (a *API) pheocFeature() *reportFeature {
	return &reportFeature{
		name:     "pheoc",
		title:    [2]string{"PHEOC status", "สถานะ PHEOC"},
		writeCap: access.ReportWrite,
		store:    a.pheoc,
		sections: func(lang string) []formSection {
			return []formSection{{Title: pickPair(lang, [2]string{"Emergency operations centre", "ศูนย์ปฏิบัติการภาวะฉุกเฉิน"}), Rows: []formRow{
				{Label: pickPair(lang, [2]string{"Centre status", "สถานะศูนย์"}), Fields: []formField{{Name: "status", Kind: kindSelect, Options: catalogOptions(service.PheocStatuses, lang, true)}}},
				{Label: pickPair(lang, [2]string{"Alert level", "ระดับการเตือนภัย"}), Fields: []formField{{Name: "alertLevel", Kind: kindSelect, Options: catalogOptions(service.AlertLevels, lang, true)}}},
				{Label: pickPair(lang, [2]string{"Response level", "ระดับการตอบโต้"}), Fields: []formField{{Name: "responseLevel", Kind: kindSelect, Options: catalogOptions(service.ResponseLevels, lang, true)}}},
				{Label: pickPair(lang, [2]string{"Activated groups", "กลุ่มภารกิจที่เปิดใช้"}), Fields: []formField{{Name: "activatedGroups", Kind: kindMulti, Options: catalogOptions(service.PheocGroups, lang, false)}}},
				{Label: pickPair(lang, [2]string{"Situation summary (Markdown)", "สรุปสถานการณ์ (Markdown)"}), Fields: []formField{{Name: "summary", Kind: kindTextarea}}},
				{Label: pickPair(lang, [2]string{"Attachment (PDF)", "เอกสารแนบ (PDF)"}), Fields: []formField{{Name: "attachmentUrl", Kind: kindText}}},
			}}}
		},
		save: func(c *gin.Context, p *access.Principal, loc uint, date time.Time) (reconcile.Outcome, error) {
			return a.pheoc.Save(p, loc, date, service.PheocInput{
				Status:          strings.TrimSpace(c.PostForm("status")),
				AlertLevel:      strings.TrimSpace(c.PostForm("alertLevel")),
				ResponseLevel:   strings.TrimSpace(c.PostForm("responseLevel")),
				ActivatedGroups: c.PostFormArray("activatedGroups"),
				Summary:         c.PostForm("summary"),
				AttachmentURL:   c.PostForm("attachmentUrl"),
			})
		},
		load: func(p *access.Principal, loc uint, date time.Time) (any, formValues, error) {
			report, err := a.pheoc.Get(p, loc, date)
			if err != nil || report == nil {
				return report, formValues{}, err
			}
			values := formValues{
				"status":          report.Status,
				"alertLevel":      report.AlertLevel,
				"responseLevel":   report.ResponseLevel,
				"activatedGroups": strings.Join(report.ActivatedGroups, ","),
				"summary":         report.Summary,
				"attachmentUrl":   report.AttachmentURL,
			}
			return gin.H{"report": report, "summaryHtml": service.RenderSummary(report.Summary)}, values, nil
		},
	}
}
