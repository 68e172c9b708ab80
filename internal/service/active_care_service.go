package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// noteLimit 备注类字段的最大字符数
const noteLimit = 500

// ActiveCareInput 一条主动关怀活动
type ActiveCareInput struct {
	ActivityType string
	Households   int
	People       int
	Note         string
}

// ActiveCareService 主动关怀日报，当天活动整体替换
type ActiveCareService struct {
	reportBase
}

// NewActiveCareService 构造 ActiveCareService
func NewActiveCareService(gdb *gorm.DB, logger *logrus.Logger) *ActiveCareService {
	return &ActiveCareService{
		reportBase: newReportBase(gdb, logger, "active-care", access.ReportWrite, activeCareTable),
	}
}

// Save 删除当天已有活动后插入非空活动
func (s *ActiveCareService) Save(p *access.Principal, locationID uint, date time.Time, entries []ActiveCareInput) (reconcile.Outcome, error) {
	keys := make([]string, 0, len(entries))
	rows := make([]db.ActiveCareLog, 0, len(entries))
	for _, e := range entries {
		if err := checkNonNegative(e.Households, e.People); err != nil {
			return reconcile.Outcome{}, err
		}
		keys = append(keys, e.ActivityType)
		rows = append(rows, db.ActiveCareLog{
			ActivityType: e.ActivityType,
			Households:   e.Households,
			People:       e.People,
			Note:         CleanText(e.Note, noteLimit),
		})
	}
	if err := checkCategories(CareActivities, keys); err != nil {
		return reconcile.Outcome{}, err
	}

	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		return reconcile.Save(tx, activeCareTable, scope, rows)
	})
}

// Get 读取某天的活动
func (s *ActiveCareService) Get(p *access.Principal, locationID uint, date time.Time) ([]db.ActiveCareLog, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	return reconcile.Load[db.ActiveCareLog](s.db, activeCareTable, scope)
}
