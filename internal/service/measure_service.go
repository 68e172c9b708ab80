package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MeasureInput 某项措施的执行状态
type MeasureInput struct {
	Status string
	Detail string
}

// MeasureService 公共卫生措施，写入需要 measure:write（SSJ / ADMIN）
type MeasureService struct {
	reportBase
}

// NewMeasureService 构造 MeasureService
func NewMeasureService(gdb *gorm.DB, logger *logrus.Logger) *MeasureService {
	return &MeasureService{
		reportBase: newReportBase(gdb, logger, "measures", access.MeasureWrite, measureTable),
	}
}

// Save 按措施类型 upsert
func (s *MeasureService) Save(p *access.Principal, locationID uint, date time.Time, input map[string]MeasureInput) (reconcile.Outcome, error) {
	if err := checkMapKeys(MeasureTypes, input); err != nil {
		return reconcile.Outcome{}, err
	}
	rows := make([]db.Measure, 0, len(MeasureTypes))
	for _, cat := range MeasureTypes {
		v := input[cat.Key]
		if err := checkOption(MeasureStatuses, v.Status); err != nil {
			return reconcile.Outcome{}, err
		}
		rows = append(rows, db.Measure{
			MeasureType: cat.Key,
			Status:      v.Status,
			Detail:      CleanText(v.Detail, detailLimit),
		})
	}

	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		return reconcile.Save(tx, measureTable, scope, rows)
	})
}

// Get 读取某天的措施
func (s *MeasureService) Get(p *access.Principal, locationID uint, date time.Time) ([]db.Measure, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	return reconcile.Load[db.Measure](s.db, measureTable, scope)
}
