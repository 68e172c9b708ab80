package handler

import (
	"bytes"
	"encoding/json"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func reportValues(t *testing.T, recorder *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	body := decodeResult(t, recorder)
	if !body.Success {
		t.Fatalf("expected success, got %+v", body)
	}
	var data struct {
		Values map[string]string `json:"values"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return data.Values
}

func TestInventorySaveOverwritesWithZero(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "pcu", access.RolePCU, env.location.ID)

	recorder := env.do(http.MethodPost, "/reports/inventory", url.Values{
		"date":                 {"2024-03-01"},
		"item_n95_mask":        {"1,200"},
		"item_surgical_mask":   {"30"},
		"room_school_count":    {"2"},
		"room_school_capacity": {"80"},
	}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected save to succeed, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if body := decodeResult(t, recorder); body.Message != "Saved successfully" {
		t.Fatalf("unexpected message %q", body.Message)
	}

	values := reportValues(t, env.do(http.MethodGet, "/reports/inventory/data?date=2024-03-01", nil, cookie))
	if values["item_n95_mask"] != "1200" || values["room_school_capacity"] != "80" {
		t.Fatalf("unexpected saved values %+v", values)
	}

	// 再次保存时未填写的字段被置 0
	recorder = env.do(http.MethodPost, "/reports/inventory", url.Values{
		"date":          {"2024-03-01"},
		"item_n95_mask": {"5"},
	}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("second save failed: %d", recorder.Code)
	}
	values = reportValues(t, env.do(http.MethodGet, "/reports/inventory/data?date=2024-03-01", nil, cookie))
	if values["item_n95_mask"] != "5" || values["item_surgical_mask"] != "0" || values["room_school_count"] != "0" {
		t.Fatalf("expected omitted fields to be zeroed, got %+v", values)
	}

	var count int64
	env.gdb.Model(&db.InventoryLog{}).Where("location_id = ?", env.location.ID).Count(&count)
	if count != 2 {
		t.Fatalf("expected empty items to be skipped and zeroed rows kept, got %d rows", count)
	}

	if got := testutil.ToFloat64(env.metrics.ReportSaves.WithLabelValues("inventory", "ok")); got != 2 {
		t.Fatalf("expected 2 ok saves, got %v", got)
	}
}

func TestSaveReportValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "pcu", access.RolePCU, env.location.ID)

	cases := []struct {
		name    string
		form    url.Values
		status  int
		message string
	}{
		{name: "missing date", form: url.Values{"item_n95_mask": {"1"}}, status: http.StatusBadRequest, message: "Please provide a valid date"},
		{name: "bad date", form: url.Values{"date": {"01/03/2024"}}, status: http.StatusBadRequest, message: "Please provide a valid date"},
		{name: "negative", form: url.Values{"date": {"2024-03-01"}, "item_n95_mask": {"-3"}}, status: http.StatusBadRequest, message: "Numbers must not be negative"},
		{name: "other location", form: url.Values{"date": {"2024-03-01"}, "locationId": {"999"}}, status: http.StatusForbidden, message: "You do not have permission for this action"},
	}
	for _, tc := range cases {
		recorder := env.do(http.MethodPost, "/reports/inventory", tc.form, cookie)
		if recorder.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.status, recorder.Code)
		}
		body := decodeResult(t, recorder)
		if body.Success || body.Message != tc.message {
			t.Fatalf("%s: unexpected body %+v", tc.name, body)
		}
	}

	if got := testutil.ToFloat64(env.metrics.ReportSaves.WithLabelValues("inventory", "invalid")); got != 3 {
		t.Fatalf("expected 3 invalid saves, got %v", got)
	}
	if got := testutil.ToFloat64(env.metrics.ReportSaves.WithLabelValues("inventory", "denied")); got != 1 {
		t.Fatalf("expected 1 denied save, got %v", got)
	}
}

func TestOperationsDeleteAndHistory(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "ssj", access.RoleSSJ, env.location.ID)

	for _, date := range []string{"2024-03-01", "2024-03-03"} {
		recorder := env.do(http.MethodPost, "/reports/operations", url.Values{
			"date":                  {date},
			"op_eoc_meeting_count":  {"1"},
			"support_budget_amount": {"2500.505"},
			"includeVulnerable":     {"1"},
			"group_elderly":         {"14"},
		}, cookie)
		if recorder.Code != http.StatusOK {
			t.Fatalf("save %s failed: %d %s", date, recorder.Code, recorder.Body.String())
		}
	}

	values := reportValues(t, env.do(http.MethodGet, "/reports/operations/data?date=2024-03-01", nil, cookie))
	if values["support_budget_amount"] != "2500.51" || values["group_elderly"] != "14" || values["op_eoc_meeting_count"] != "1" {
		t.Fatalf("unexpected operations values %+v", values)
	}

	recorder := env.do(http.MethodGet, "/reports/operations/history", nil, cookie)
	var history []string
	if err := json.Unmarshal(decodeResult(t, recorder).Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if strings.Join(history, ",") != "2024-03-03,2024-03-01" {
		t.Fatalf("unexpected history %v", history)
	}

	recorder = env.do(http.MethodPost, "/reports/operations/delete", url.Values{"date": {"2024-03-01"}}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", recorder.Code, recorder.Body.String())
	}
	var removed struct {
		Removed int64 `json:"removed"`
	}
	if err := json.Unmarshal(decodeResult(t, recorder).Data, &removed); err != nil || removed.Removed == 0 {
		t.Fatalf("expected rows to be removed, got %+v err=%v", removed, err)
	}

	var vulnerable int64
	env.gdb.Model(&db.VulnerableData{}).Where("record_date = ?", mustDate(t, "2024-03-01")).Count(&vulnerable)
	if vulnerable != 0 {
		t.Fatalf("delete should include vulnerable rows, %d left", vulnerable)
	}
}

func TestMeasuresRequireMeasureCapability(t *testing.T) {
	env := newTestEnv(t)
	hospital := env.seedUser(t, "hospital", access.RoleHospital, env.location.ID)
	ssj := env.seedUser(t, "ssj", access.RoleSSJ, env.location.ID)

	form := url.Values{
		"date":                          {"2024-03-01"},
		"measure_school_closure_status": {"in_progress"},
		"measure_school_closure_detail": {"<b>closed</b> until Friday"},
	}
	if recorder := env.do(http.MethodPost, "/reports/measures", form, hospital); recorder.Code != http.StatusForbidden {
		t.Fatalf("hospital should not write measures, got %d", recorder.Code)
	}
	if recorder := env.do(http.MethodPost, "/reports/measures", form, ssj); recorder.Code != http.StatusOK {
		t.Fatalf("ssj should write measures, got %d %s", recorder.Code, recorder.Body.String())
	}

	values := reportValues(t, env.do(http.MethodGet, "/reports/measures/data?date=2024-03-01", nil, ssj))
	if values["measure_school_closure_status"] != "in_progress" || values["measure_school_closure_detail"] != "closed until Friday" {
		t.Fatalf("unexpected measure values %+v", values)
	}

	form.Set("measure_school_closure_status", "maybe")
	if recorder := env.do(http.MethodPost, "/reports/measures", form, ssj); recorder.Code != http.StatusBadRequest {
		t.Fatalf("unknown status should be rejected, got %d", recorder.Code)
	}
}

func TestShowReportPrefillsForm(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "pcu", access.RolePCU, env.location.ID)

	env.do(http.MethodPost, "/reports/vulnerable", url.Values{"date": {"2024-03-01"}, "group_elderly": {"9"}}, cookie)

	recorder := env.do(http.MethodGet, "/reports/vulnerable?date=2024-03-01", nil, cookie)
	if recorder.Code != http.StatusOK || env.html.last.name != "report_form.html" {
		t.Fatalf("expected report form, got %d", recorder.Code)
	}
	payload := env.html.payload(t)
	sections, ok := payload["sections"].([]formSection)
	if !ok || len(sections) != 1 {
		t.Fatalf("unexpected sections %T", payload["sections"])
	}
	found := false
	for _, row := range sections[0].Rows {
		for _, f := range row.Fields {
			if f.Name == "group_elderly" {
				found = f.Value == "9"
			}
		}
	}
	if !found {
		t.Fatal("expected elderly count to be prefilled")
	}
	if payload["canWrite"] != true || payload["locationLabel"] != env.location.Label() {
		t.Fatalf("unexpected payload %+v", payload)
	}

	if recorder := env.do(http.MethodGet, "/reports/rice", nil, cookie); recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown feature should 404, got %d", recorder.Code)
	}
}

func TestPheocUploadAndSave(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "ssj", access.RoleSSJ, env.location.ID)

	upload := func(name string, content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(content)
		writer.Close()

		request := httptest.NewRequest(http.MethodPost, "/reports/pheoc/upload", &buf)
		request.Header.Set("Content-Type", writer.FormDataContentType())
		request.AddCookie(cookie)
		recorder := httptest.NewRecorder()
		env.router.ServeHTTP(recorder, request)
		return recorder
	}

	if recorder := upload("notes.txt", []byte("plain text")); recorder.Code != http.StatusBadRequest {
		t.Fatalf("non-pdf upload should be rejected, got %d", recorder.Code)
	}
	if recorder := upload("big.pdf", append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 2048)...)); recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload should be rejected, got %d", recorder.Code)
	}

	recorder := upload("รายงาน.pdf", []byte("%PDF-1.4\n%%EOF"))
	if recorder.Code != http.StatusOK {
		t.Fatalf("pdf upload failed: %d %s", recorder.Code, recorder.Body.String())
	}
	var uploaded struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(decodeResult(t, recorder).Data, &uploaded); err != nil || !strings.HasPrefix(uploaded.URL, "/uploads/pheoc/") {
		t.Fatalf("unexpected upload url %+v err=%v", uploaded, err)
	}

	recorder = env.do(http.MethodPost, "/reports/pheoc", url.Values{
		"date":            {"2024-03-01"},
		"status":          {"activated"},
		"alertLevel":      {"orange"},
		"responseLevel":   {"level2"},
		"activatedGroups": {"operations", "logistics"},
		"summary":         {"## PM2.5\n\n- schools closed"},
		"attachmentUrl":   {uploaded.URL},
	}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("pheoc save failed: %d %s", recorder.Code, recorder.Body.String())
	}

	values := reportValues(t, env.do(http.MethodGet, "/reports/pheoc/data?date=2024-03-01", nil, cookie))
	if values["activatedGroups"] != "operations,logistics" || values["attachmentUrl"] != uploaded.URL {
		t.Fatalf("unexpected pheoc values %+v", values)
	}

	if recorder := env.do(http.MethodPost, "/reports/inventory/upload", url.Values{}, cookie); recorder.Code != http.StatusNotFound {
		t.Fatalf("only pheoc accepts uploads, got %d", recorder.Code)
	}
}

func TestPheocFormShowsSanitizedSummary(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "ssj", access.RoleSSJ, env.location.ID)

	recorder := env.do(http.MethodPost, "/reports/pheoc", url.Values{
		"date":          {"2024-03-02"},
		"status":        {"activated"},
		"alertLevel":    {"orange"},
		"responseLevel": {"level2"},
		"summary":       {"## Flood\n\n**evacuate** ward 3<script>alert(1)</script>"},
	}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("pheoc save failed: %d %s", recorder.Code, recorder.Body.String())
	}

	if recorder := env.do(http.MethodGet, "/reports/pheoc?date=2024-03-02", nil, cookie); recorder.Code != http.StatusOK {
		t.Fatalf("pheoc form: %d", recorder.Code)
	}
	summary, ok := env.html.payload(t)["summaryHtml"].(template.HTML)
	if !ok {
		t.Fatalf("expected summaryHtml in payload, got %T", env.html.payload(t)["summaryHtml"])
	}
	if !strings.Contains(string(summary), "<strong>evacuate</strong>") || !strings.Contains(string(summary), "<h2") {
		t.Fatalf("summary not rendered as markdown: %q", summary)
	}
	if strings.Contains(string(summary), "<script") {
		t.Fatalf("summary not sanitized: %q", summary)
	}

	env.do(http.MethodGet, "/reports/inventory?date=2024-03-02", nil, cookie)
	if got := env.html.payload(t)["summaryHtml"]; got != template.HTML("") {
		t.Fatalf("inventory form should have no summary, got %q", got)
	}
}

func TestParseCount(t *testing.T) {
	cases := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "", want: 0},
		{input: "  12 ", want: 12},
		{input: "1,500", want: 1500},
		{input: "abc", want: 0},
		{input: "1.5", want: 0},
		{input: "12a", want: 0},
		{input: "-1", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseCount(tc.input)
		if tc.wantErr != (err != nil) {
			t.Fatalf("parseCount(%q) error = %v", tc.input, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("parseCount(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	for input, want := range map[string]string{"": "0", "2,500.50": "2500.5", "lots": "0", "1.2.3": "0"} {
		got, err := parseAmount(input)
		if err != nil || got.String() != want {
			t.Fatalf("parseAmount(%q) = %s, %v; want %s", input, got, err, want)
		}
	}
	if _, err := parseAmount("-0.5"); err == nil {
		t.Fatal("negative amounts must be rejected")
	}
}

func TestSaveReportTreatsUnparseableNumbersAsZero(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.seedUser(t, "pcu", access.RolePCU, env.location.ID)

	recorder := env.do(http.MethodPost, "/reports/inventory", url.Values{
		"date":               {"2024-03-01"},
		"item_n95_mask":      {"many"},
		"item_surgical_mask": {"7"},
	}, cookie)
	if recorder.Code != http.StatusOK || !decodeResult(t, recorder).Success {
		t.Fatalf("expected save to succeed, got %d %s", recorder.Code, recorder.Body.String())
	}

	values := reportValues(t, env.do(http.MethodGet, "/reports/inventory/data?date=2024-03-01", nil, cookie))
	if values["item_surgical_mask"] != "7" {
		t.Fatalf("expected surgical masks to be stored, got %+v", values)
	}
	if v, ok := values["item_n95_mask"]; ok && v != "0" {
		t.Fatalf("unparseable input should count as 0, got %q", v)
	}
}

func mustDate(t *testing.T, raw string) any {
	t.Helper()
	d, err := parseOptionalDate(raw)
	if err != nil {
		t.Fatalf("parse date %s: %v", raw, err)
	}
	return d
}
