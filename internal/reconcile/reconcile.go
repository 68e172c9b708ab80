// Package reconcile makes the stored rows of one (location, day) match a submitted form.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Strategy 描述一张表的写入方式，每张表固定使用一种。
type Strategy int

const (
	// Upsert 按分类键逐行 insert-or-update；全零且无旧行时不落库，全零覆盖旧行时写零。
	Upsert Strategy = iota
	// ReplaceAll 删除当日（限定分类集合内的）全部旧行，再插入非空行。
	ReplaceAll
)

func (s Strategy) String() string {
	if s == ReplaceAll {
		return "replace-all"
	}
	return "upsert"
}

var (
	// ErrDuplicateKey 同一次提交中出现重复的分类键。
	ErrDuplicateKey = errors.New("duplicate category key in submission")
	// ErrMissingScope location 或日期缺失。
	ErrMissingScope = errors.New("location and record date are required")
)

// Record 由每个日报模型的指针实现。
type Record interface {
	// Assign 写入行的 location_id 与 record_date。
	Assign(locationID uint, date time.Time)
	// CategoryKey 返回分类键；每日一行的表返回空串。
	CategoryKey() string
	// IsEmpty 表示所有数值/文本字段都为零值。
	IsEmpty() bool
	// Values 返回需要覆盖的数值列，键为列名。
	Values() map[string]any
}

// Scope 标识某个地点的某一天。
type Scope struct {
	LocationID uint
	Date       time.Time
}

// NewScope 构造 Scope，日期统一归一化。
func NewScope(locationID uint, date time.Time) Scope {
	return Scope{LocationID: locationID, Date: NormalizeToCalendarDate(date)}
}

func (s Scope) validate() error {
	if s.LocationID == 0 || s.Date.IsZero() {
		return ErrMissingScope
	}
	return nil
}

// Table 描述一张日报表。
type Table struct {
	Name      string
	KeyColumn string
	Strategy  Strategy
	// Keys 限定 ReplaceAll 删除的分类集合，为空表示当日全部行。
	Keys  []string
	model func() any
}

// NewTable 绑定模型类型，P 由约束推导。
func NewTable[T any, P interface {
	*T
	Record
}](name, keyColumn string, strategy Strategy) Table {
	return Table{
		Name:      name,
		KeyColumn: keyColumn,
		Strategy:  strategy,
		model:     func() any { return P(new(T)) },
	}
}

// WithKeys 返回限定了分类集合的副本。
func (t Table) WithKeys(keys ...string) Table {
	t.Keys = append([]string(nil), keys...)
	return t
}

func (t Table) conflictColumns() []clause.Column {
	cols := []clause.Column{{Name: "location_id"}, {Name: "record_date"}}
	if t.KeyColumn != "" {
		cols = append(cols, clause.Column{Name: t.KeyColumn})
	}
	return cols
}

func (t Table) scoped(tx *gorm.DB, scope Scope) *gorm.DB {
	return tx.Model(t.model()).Where("location_id = ? AND record_date = ?", scope.LocationID, scope.Date)
}

// Outcome 汇总一次保存的效果，便于日志与测试。
type Outcome struct {
	Written int
	Zeroed  int
	Skipped int
	Removed int
}

// Add 合并多张表的结果。
func (o Outcome) Add(other Outcome) Outcome {
	return Outcome{
		Written: o.Written + other.Written,
		Zeroed:  o.Zeroed + other.Zeroed,
		Skipped: o.Skipped + other.Skipped,
		Removed: o.Removed + other.Removed,
	}
}

// Save 将 rows 对齐到 scope 下的存量数据。调用方负责开启事务。
func Save[T any, P interface {
	*T
	Record
}](tx *gorm.DB, table Table, scope Scope, rows []T) (Outcome, error) {
	if err := scope.validate(); err != nil {
		return Outcome{}, err
	}
	scope.Date = NormalizeToCalendarDate(scope.Date)

	seen := make(map[string]struct{}, len(rows))
	for i := range rows {
		record := P(&rows[i])
		record.Assign(scope.LocationID, scope.Date)
		key := record.CategoryKey()
		if _, dup := seen[key]; dup {
			return Outcome{}, fmt.Errorf("%w: %s.%s", ErrDuplicateKey, table.Name, key)
		}
		seen[key] = struct{}{}
	}

	if table.Strategy == ReplaceAll {
		return replaceAll[T, P](tx, table, scope, rows)
	}
	return upsert[T, P](tx, table, scope, rows)
}

func upsert[T any, P interface {
	*T
	Record
}](tx *gorm.DB, table Table, scope Scope, rows []T) (Outcome, error) {
	var out Outcome
	for i := range rows {
		record := P(&rows[i])
		values := record.Values()

		if record.IsEmpty() {
			// 只覆盖已有行，不新建空行
			updates := make(map[string]any, len(values)+1)
			for col, v := range values {
				updates[col] = v
			}
			updates["updated_at"] = time.Now().UTC()

			query := tx.Model(P(new(T))).Where("location_id = ? AND record_date = ?", scope.LocationID, scope.Date)
			if table.KeyColumn != "" {
				query = query.Where(table.KeyColumn+" = ?", record.CategoryKey())
			}
			res := query.Updates(updates)
			if res.Error != nil {
				return out, fmt.Errorf("zero %s: %w", table.Name, res.Error)
			}
			if res.RowsAffected > 0 {
				out.Zeroed++
			} else {
				out.Skipped++
			}
			continue
		}

		columns := make([]string, 0, len(values)+1)
		for col := range values {
			columns = append(columns, col)
		}
		sort.Strings(columns)
		columns = append(columns, "updated_at")

		if err := tx.Clauses(clause.OnConflict{
			Columns:   table.conflictColumns(),
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(record).Error; err != nil {
			return out, fmt.Errorf("upsert %s: %w", table.Name, err)
		}
		out.Written++
	}
	return out, nil
}

func replaceAll[T any, P interface {
	*T
	Record
}](tx *gorm.DB, table Table, scope Scope, rows []T) (Outcome, error) {
	var out Outcome

	del := tx.Where("location_id = ? AND record_date = ?", scope.LocationID, scope.Date)
	if len(table.Keys) > 0 && table.KeyColumn != "" {
		del = del.Where(table.KeyColumn+" IN ?", table.Keys)
	}
	res := del.Delete(P(new(T)))
	if res.Error != nil {
		return out, fmt.Errorf("clear %s: %w", table.Name, res.Error)
	}
	out.Removed = int(res.RowsAffected)

	keep := make([]T, 0, len(rows))
	for i := range rows {
		if P(&rows[i]).IsEmpty() {
			out.Skipped++
			continue
		}
		keep = append(keep, rows[i])
	}
	if len(keep) == 0 {
		return out, nil
	}
	if err := tx.Create(&keep).Error; err != nil {
		return out, fmt.Errorf("insert %s: %w", table.Name, err)
	}
	out.Written = len(keep)
	return out, nil
}

// Load 读取 scope 下的全部行，按分类键排序。
func Load[T any, P interface {
	*T
	Record
}](gdb *gorm.DB, table Table, scope Scope) ([]T, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	scope.Date = NormalizeToCalendarDate(scope.Date)

	order := "id ASC"
	if table.KeyColumn != "" {
		order = table.KeyColumn + " ASC"
	}

	var rows []T
	if err := table.scoped(gdb, scope).Order(order).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", table.Name, err)
	}
	return rows, nil
}

// DeleteDay 物理删除 scope 在各表中的全部行。多表时调用方须在同一事务内调用。
func DeleteDay(tx *gorm.DB, scope Scope, tables ...Table) (int64, error) {
	if err := scope.validate(); err != nil {
		return 0, err
	}
	scope.Date = NormalizeToCalendarDate(scope.Date)

	var removed int64
	for _, table := range tables {
		res := tx.Where("location_id = ? AND record_date = ?", scope.LocationID, scope.Date).Delete(table.model())
		if res.Error != nil {
			return removed, fmt.Errorf("delete %s: %w", table.Name, res.Error)
		}
		removed += res.RowsAffected
	}
	return removed, nil
}

// History 返回某地点在各表中出现过的日历日期，去重后倒序。
func History(gdb *gorm.DB, locationID uint, tables ...Table) ([]time.Time, error) {
	seen := make(map[int64]time.Time)
	for _, table := range tables {
		var dates []time.Time
		if err := gdb.Model(table.model()).
			Where("location_id = ?", locationID).
			Distinct("record_date").
			Pluck("record_date", &dates).Error; err != nil {
			return nil, fmt.Errorf("history %s: %w", table.Name, err)
		}
		for _, d := range dates {
			day := NormalizeToCalendarDate(d)
			seen[day.Unix()] = day
		}
	}

	result := make([]time.Time, 0, len(seen))
	for _, day := range seen {
		result = append(result, day)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].After(result[j]) })
	return result, nil
}
