package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OperationInput 一条应急运行活动
type OperationInput struct {
	Activity string
	Count    int
	Note     string
}

// SupportInput 地方行政机构支援
type SupportInput struct {
	Amount decimal.Decimal
	Note   string
}

// OperationsInput 运行日报表单。Vulnerable 为 nil 时不触碰人群数据
type OperationsInput struct {
	Activities []OperationInput
	Support    map[string]SupportInput
	Vulnerable map[string]int
}

// OperationsReport 某天的运行日报
type OperationsReport struct {
	Date       time.Time
	Activities []db.OperationLog
	Support    []db.LocalAdminSupport
	Vulnerable []db.VulnerableData
}

// OperationsReportService 运行活动 + 地方支援 + 脆弱人群，三表同事务
type OperationsReportService struct {
	reportBase
}

// NewOperationsReportService 构造 OperationsReportService
func NewOperationsReportService(gdb *gorm.DB, logger *logrus.Logger) *OperationsReportService {
	return &OperationsReportService{
		reportBase: newReportBase(gdb, logger, "operations", access.ReportWrite,
			operationTable, localSupportTable, vulnerableTable),
	}
}

// Save 运行活动整体替换，支援与人群按分类 upsert
func (s *OperationsReportService) Save(p *access.Principal, locationID uint, date time.Time, input OperationsInput) (reconcile.Outcome, error) {
	keys := make([]string, 0, len(input.Activities))
	activities := make([]db.OperationLog, 0, len(input.Activities))
	for _, a := range input.Activities {
		if err := checkNonNegative(a.Count); err != nil {
			return reconcile.Outcome{}, err
		}
		keys = append(keys, a.Activity)
		activities = append(activities, db.OperationLog{
			Activity: a.Activity,
			Count:    a.Count,
			Note:     CleanText(a.Note, noteLimit),
		})
	}
	if err := checkCategories(OperationActivities, keys); err != nil {
		return reconcile.Outcome{}, err
	}

	if err := checkMapKeys(SupportTypes, input.Support); err != nil {
		return reconcile.Outcome{}, err
	}
	support := make([]db.LocalAdminSupport, 0, len(SupportTypes))
	for _, cat := range SupportTypes {
		v := input.Support[cat.Key]
		if v.Amount.IsNegative() {
			return reconcile.Outcome{}, ErrNegativeValue
		}
		support = append(support, db.LocalAdminSupport{
			SupportType: cat.Key,
			Amount:      v.Amount.Round(2),
			Note:        CleanText(v.Note, noteLimit),
		})
	}

	var vulnerable []db.VulnerableData
	if input.Vulnerable != nil {
		rows, err := vulnerableRows(input.Vulnerable)
		if err != nil {
			return reconcile.Outcome{}, err
		}
		vulnerable = rows
	}

	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		out, err := reconcile.Save(tx, operationTable, scope, activities)
		if err != nil {
			return out, err
		}
		more, err := reconcile.Save(tx, localSupportTable, scope, support)
		out = out.Add(more)
		if err != nil || vulnerable == nil {
			return out, err
		}
		more, err = reconcile.Save(tx, vulnerableTable, scope, vulnerable)
		return out.Add(more), err
	})
}

// Get 读取某天的三张表
func (s *OperationsReportService) Get(p *access.Principal, locationID uint, date time.Time) (*OperationsReport, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	activities, err := reconcile.Load[db.OperationLog](s.db, operationTable, scope)
	if err != nil {
		return nil, err
	}
	support, err := reconcile.Load[db.LocalAdminSupport](s.db, localSupportTable, scope)
	if err != nil {
		return nil, err
	}
	vulnerable, err := reconcile.Load[db.VulnerableData](s.db, vulnerableTable, scope)
	if err != nil {
		return nil, err
	}
	return &OperationsReport{Date: scope.Date, Activities: activities, Support: support, Vulnerable: vulnerable}, nil
}
