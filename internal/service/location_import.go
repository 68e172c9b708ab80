package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var locationHeaders = map[string]int{
	"province":     0,
	"จังหวัด":      0,
	"district":     1,
	"อำเภอ":        1,
	"sub_district": 2,
	"subdistrict":  2,
	"ตำบล":         2,
}

// ParseLocationSheet 读取 xlsx 第一个工作表。
// 第一行若是表头（province/district/sub_district 或泰文），按表头定位列，否则按前三列处理。
func ParseLocationSheet(r io.Reader) ([]LocationRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := [3]int{0, 1, 2}
	start := 0
	if header, ok := headerColumns(rows[0]); ok {
		columns = header
		start = 1
	}

	result := make([]LocationRow, 0, len(rows)-start)
	for _, row := range rows[start:] {
		item := LocationRow{
			Province:    cell(row, columns[0]),
			District:    cell(row, columns[1]),
			SubDistrict: cell(row, columns[2]),
		}
		if item.Province == "" {
			continue
		}
		result = append(result, item)
	}
	return result, nil
}

func headerColumns(row []string) ([3]int, bool) {
	columns := [3]int{-1, -1, -1}
	found := 0
	for i, raw := range row {
		key := strings.ToLower(strings.TrimSpace(raw))
		if idx, ok := locationHeaders[key]; ok && columns[idx] < 0 {
			columns[idx] = i
			found++
		}
	}
	if found == 0 || columns[0] < 0 {
		return [3]int{}, false
	}
	return columns, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
