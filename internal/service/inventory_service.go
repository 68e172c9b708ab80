package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CleanRoomInput 某类场所的净化室数量与容量
type CleanRoomInput struct {
	RoomCount int
	Capacity  int
}

// InventoryInput 物资与净化室表单，两张表在同一事务中保存
type InventoryInput struct {
	Items      map[string]int
	CleanRooms map[string]CleanRoomInput
}

// InventoryReport 某地点某天的物资与净化室数据
type InventoryReport struct {
	Date       time.Time
	Items      []db.InventoryLog
	CleanRooms []db.CleanRoomReport
}

// InventoryReportService 物资库存 + 净化室日报
type InventoryReportService struct {
	reportBase
}

// NewInventoryReportService 构造 InventoryReportService
func NewInventoryReportService(gdb *gorm.DB, logger *logrus.Logger) *InventoryReportService {
	return &InventoryReportService{
		reportBase: newReportBase(gdb, logger, "inventory", access.ReportWrite, inventoryTable, cleanRoomTable),
	}
}

// Save 以目录为准生成完整行集，未提交的分类按 0 处理
func (s *InventoryReportService) Save(p *access.Principal, locationID uint, date time.Time, input InventoryInput) (reconcile.Outcome, error) {
	if err := checkMapKeys(InventoryItems, input.Items); err != nil {
		return reconcile.Outcome{}, err
	}
	if err := checkMapKeys(CleanRoomPlaces, input.CleanRooms); err != nil {
		return reconcile.Outcome{}, err
	}

	items := make([]db.InventoryLog, 0, len(InventoryItems))
	for _, cat := range InventoryItems {
		qty := input.Items[cat.Key]
		if err := checkNonNegative(qty); err != nil {
			return reconcile.Outcome{}, err
		}
		items = append(items, db.InventoryLog{ItemName: cat.Key, Quantity: qty})
	}

	rooms := make([]db.CleanRoomReport, 0, len(CleanRoomPlaces))
	for _, cat := range CleanRoomPlaces {
		v := input.CleanRooms[cat.Key]
		if err := checkNonNegative(v.RoomCount, v.Capacity); err != nil {
			return reconcile.Outcome{}, err
		}
		rooms = append(rooms, db.CleanRoomReport{PlaceType: cat.Key, RoomCount: v.RoomCount, Capacity: v.Capacity})
	}

	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		out, err := reconcile.Save(tx, inventoryTable, scope, items)
		if err != nil {
			return out, err
		}
		more, err := reconcile.Save(tx, cleanRoomTable, scope, rooms)
		return out.Add(more), err
	})
}

// Get 读取某天的数据，没有数据时返回空切片
func (s *InventoryReportService) Get(p *access.Principal, locationID uint, date time.Time) (*InventoryReport, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	items, err := reconcile.Load[db.InventoryLog](s.db, inventoryTable, scope)
	if err != nil {
		return nil, err
	}
	rooms, err := reconcile.Load[db.CleanRoomReport](s.db, cleanRoomTable, scope)
	if err != nil {
		return nil, err
	}
	return &InventoryReport{Date: scope.Date, Items: items, CleanRooms: rooms}, nil
}
