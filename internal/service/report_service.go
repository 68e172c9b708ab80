package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrUnknownCategory 提交了不在目录中的分类
	ErrUnknownCategory = errors.New("unknown category")
	// ErrDuplicateCategory 同一次提交中分类重复
	ErrDuplicateCategory = errors.New("duplicate category")
	// ErrNegativeValue 数量不能为负
	ErrNegativeValue = errors.New("value must not be negative")
	// ErrInvalidOption 状态/级别等选项不合法
	ErrInvalidOption = errors.New("invalid option")
)

// IsValidationError 判断错误是否应直接反馈给用户而不是记为系统错误
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUnknownCategory, ErrDuplicateCategory, ErrNegativeValue, ErrInvalidOption,
		ErrLocationNotFound, reconcile.ErrInvalidDate, reconcile.ErrMissingScope,
		ErrUploadTooLarge, ErrUploadNotPDF,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// reportBase 是各日报服务共享的读写流程：授权、地点校验、事务、日志
type reportBase struct {
	db       *gorm.DB
	logger   *logrus.Logger
	feature  string
	writeCap access.Capability
	tables   []reconcile.Table
}

func newReportBase(gdb *gorm.DB, logger *logrus.Logger, feature string, writeCap access.Capability, tables ...reconcile.Table) reportBase {
	return reportBase{db: gdb, logger: logger, feature: feature, writeCap: writeCap, tables: tables}
}

// Feature 返回功能名，用于路由与指标标签
func (b reportBase) Feature() string { return b.feature }

// resolveScope 先授权再访问数据库；locationID 为 0 时使用调用者自己的地点
func (b reportBase) resolveScope(p *access.Principal, capability access.Capability, locationID uint, date time.Time) (reconcile.Scope, error) {
	if p != nil && locationID == 0 {
		locationID = p.LocationID
	}
	if err := access.Authorize(p, capability, locationID); err != nil {
		return reconcile.Scope{}, err
	}
	if date.IsZero() {
		return reconcile.Scope{}, reconcile.ErrMissingScope
	}
	if _, err := getLocation(b.db, locationID); err != nil {
		return reconcile.Scope{}, err
	}
	return reconcile.NewScope(locationID, date), nil
}

// write 在单个事务中执行保存，任一表失败整体回滚
func (b reportBase) write(p *access.Principal, locationID uint, date time.Time, fn func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error)) (reconcile.Outcome, error) {
	scope, err := b.resolveScope(p, b.writeCap, locationID, date)
	if err != nil {
		return reconcile.Outcome{}, err
	}

	var out reconcile.Outcome
	err = b.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		out, txErr = fn(tx, scope)
		return txErr
	})
	if err != nil {
		b.logFailure("Save", scope, err)
		return reconcile.Outcome{}, fmt.Errorf("save %s: %w", b.feature, err)
	}
	return out, nil
}

// Delete 物理删除该功能涉及的所有表在当天的数据
func (b reportBase) Delete(p *access.Principal, locationID uint, date time.Time) (int64, error) {
	scope, err := b.resolveScope(p, b.writeCap, locationID, date)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = b.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		removed, txErr = reconcile.DeleteDay(tx, scope, b.tables...)
		return txErr
	})
	if err != nil {
		b.logFailure("Delete", scope, err)
		return 0, fmt.Errorf("delete %s: %w", b.feature, err)
	}
	return removed, nil
}

// History 返回该功能在某地点有数据的日期，倒序
func (b reportBase) History(p *access.Principal, locationID uint) ([]time.Time, error) {
	if p != nil && locationID == 0 {
		locationID = p.LocationID
	}
	if err := access.Authorize(p, access.ReportRead, locationID); err != nil {
		return nil, err
	}
	dates, err := reconcile.History(b.db, locationID, b.tables...)
	if err != nil {
		logging.LogError(b.logger, "service", b.feature+".History", fmt.Sprintf("location=%d", locationID), nil, err)
		return nil, err
	}
	return dates, nil
}

func (b reportBase) logFailure(op string, scope reconcile.Scope, err error) {
	logging.LogError(b.logger, "service", b.feature+"."+op,
		fmt.Sprintf("location=%d date=%s", scope.LocationID, reconcile.FormatCalendarDate(scope.Date)),
		map[string]any{"locationId": scope.LocationID, "date": reconcile.FormatCalendarDate(scope.Date)},
		err)
}

// checkCategories 校验分类键均在目录内且不重复
func checkCategories(catalog Catalog, keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if !catalog.Has(key) {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func checkMapKeys[V any](catalog Catalog, values map[string]V) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	return checkCategories(catalog, keys)
}

func checkNonNegative(values ...int) error {
	for _, v := range values {
		if v < 0 {
			return ErrNegativeValue
		}
	}
	return nil
}

func checkOption(catalog Catalog, value string) error {
	if value == "" || catalog.Has(value) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidOption, value)
}
