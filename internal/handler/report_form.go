package handler

import (
	"strings"

	"github.com/healthportal/internal/service"
)

type fieldKind string

const (
	kindCount    fieldKind = "count"
	kindAmount   fieldKind = "amount"
	kindText     fieldKind = "text"
	kindTextarea fieldKind = "textarea"
	kindSelect   fieldKind = "select"
	kindMulti    fieldKind = "multi"
	kindHidden   fieldKind = "hidden"
)

type formOption struct {
	Value    string
	Label    string
	Selected bool
}

type formField struct {
	Name    string
	Label   string
	Kind    fieldKind
	Value   string
	Options []formOption
}

type formRow struct {
	Label  string
	Fields []formField
}

type formSection struct {
	Title string
	Rows  []formRow
}

// formValues 字段名到已保存值；多选字段用逗号连接。
type formValues map[string]string

// fill 把已保存值写回表单，供页面预填。
func fill(sections []formSection, values formValues) []formSection {
	for si := range sections {
		for ri := range sections[si].Rows {
			fields := sections[si].Rows[ri].Fields
			for fi := range fields {
				f := &fields[fi]
				if v, ok := values[f.Name]; ok && f.Kind != kindHidden {
					f.Value = v
				}
				if len(f.Options) == 0 {
					continue
				}
				selected := make(map[string]bool)
				for _, v := range strings.Split(f.Value, ",") {
					selected[v] = true
				}
				for oi := range f.Options {
					f.Options[oi].Selected = selected[f.Options[oi].Value]
				}
			}
		}
	}
	return sections
}

func catalogOptions(catalog service.Catalog, lang string, withBlank bool) []formOption {
	options := make([]formOption, 0, len(catalog)+1)
	if withBlank {
		options = append(options, formOption{Value: "", Label: "-"})
	}
	for _, cat := range catalog {
		options = append(options, formOption{Value: cat.Key, Label: cat.Label(lang)})
	}
	return options
}

// countRows 每个分类一行一个数字字段，字段名为 prefix_<key>。
func countRows(catalog service.Catalog, lang, prefix string) []formRow {
	rows := make([]formRow, 0, len(catalog))
	for _, cat := range catalog {
		rows = append(rows, formRow{
			Label:  cat.Label(lang),
			Fields: []formField{{Name: prefix + "_" + cat.Key, Kind: kindCount}},
		})
	}
	return rows
}

type fieldSpec struct {
	suffix string
	kind   fieldKind
	label  [2]string
}

// catalogRows 每个分类一行多个字段，字段名为 prefix_<key>_<suffix>。
func catalogRows(catalog service.Catalog, lang, prefix string, specs ...fieldSpec) []formRow {
	rows := make([]formRow, 0, len(catalog))
	for _, cat := range catalog {
		fields := make([]formField, 0, len(specs))
		for _, spec := range specs {
			fields = append(fields, formField{
				Name:  prefix + "_" + cat.Key + "_" + spec.suffix,
				Label: pickPair(lang, spec.label),
				Kind:  spec.kind,
			})
		}
		rows = append(rows, formRow{Label: cat.Label(lang), Fields: fields})
	}
	return rows
}
