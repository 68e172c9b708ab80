package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/healthportal/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrLocationNotFound 指定的地点不存在
	ErrLocationNotFound = errors.New("location not found")
	// ErrProvinceRequired 未选择地点时至少需要省份
	ErrProvinceRequired = errors.New("province is required")
)

// LocationSelection 表单提交的地点选择：具体地点 ID 优先，否则按省/县补占位地点
type LocationSelection struct {
	LocationID uint
	Province   string
	District   string
}

// SubDistrictOption 区级下拉选项
type SubDistrictOption struct {
	ID          uint   `json:"id"`
	SubDistrict string `json:"subDistrict"`
}

// LocationRow 批量导入的一行
type LocationRow struct {
	Province    string
	District    string
	SubDistrict string
}

// LocationService 负责省/县/区三级地点的查询与查找或创建
type LocationService struct {
	db *gorm.DB
}

// NewLocationService 构造 LocationService
func NewLocationService(gdb *gorm.DB) *LocationService {
	return &LocationService{db: gdb}
}

// ListProvinces 返回去重排序后的省份，不含占位值
func (s *LocationService) ListProvinces() ([]string, error) {
	var provinces []string
	if err := s.db.Model(&db.Location{}).
		Where("province_name <> ?", db.LocationPlaceholder).
		Distinct("province_name").
		Order("province_name ASC").
		Pluck("province_name", &provinces).Error; err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	return provinces, nil
}

// ListDistricts 返回某省下的县
func (s *LocationService) ListDistricts(province string) ([]string, error) {
	var districts []string
	if err := s.db.Model(&db.Location{}).
		Where("province_name = ? AND district_name <> ?", strings.TrimSpace(province), db.LocationPlaceholder).
		Distinct("district_name").
		Order("district_name ASC").
		Pluck("district_name", &districts).Error; err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	return districts, nil
}

// ListSubDistricts 返回某县下的区及其地点 ID
func (s *LocationService) ListSubDistricts(province, district string) ([]SubDistrictOption, error) {
	var options []SubDistrictOption
	if err := s.db.Model(&db.Location{}).
		Select("id", "sub_district").
		Where("province_name = ? AND district_name = ? AND sub_district <> ?",
			strings.TrimSpace(province), strings.TrimSpace(district), db.LocationPlaceholder).
		Order("sub_district ASC").
		Scan(&options).Error; err != nil {
		return nil, fmt.Errorf("list sub-districts: %w", err)
	}
	return options, nil
}

// Get 根据 ID 获取地点
func (s *LocationService) Get(id uint) (*db.Location, error) {
	return getLocation(s.db, id)
}

// Resolve 将表单选择解析为地点，必要时创建占位地点
func (s *LocationService) Resolve(sel LocationSelection) (*db.Location, error) {
	if sel.LocationID != 0 {
		return getLocation(s.db, sel.LocationID)
	}

	province := strings.TrimSpace(sel.Province)
	if province == "" || province == db.LocationPlaceholder {
		return nil, ErrProvinceRequired
	}
	district := strings.TrimSpace(sel.District)
	if district == "" {
		district = db.LocationPlaceholder
	}

	loc, _, err := findOrCreateLocation(s.db, LocationRow{Province: province, District: district, SubDistrict: db.LocationPlaceholder})
	return loc, err
}

// Import 批量查找或创建地点，返回新建数量
func (s *LocationService) Import(rows []LocationRow) (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i, row := range rows {
			row, ok := normalizeRow(row)
			if !ok {
				continue
			}

			_, isNew, err := findOrCreateLocation(tx, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// FindOrCreate 查找或创建单个地点，缺省的县/区使用占位值
func (s *LocationService) FindOrCreate(row LocationRow) (*db.Location, error) {
	row, ok := normalizeRow(row)
	if !ok {
		return nil, ErrProvinceRequired
	}
	loc, _, err := findOrCreateLocation(s.db, row)
	return loc, err
}

func normalizeRow(row LocationRow) (LocationRow, bool) {
	row.Province = strings.TrimSpace(row.Province)
	row.District = strings.TrimSpace(row.District)
	row.SubDistrict = strings.TrimSpace(row.SubDistrict)
	if row.Province == "" {
		return row, false
	}
	if row.District == "" {
		row.District = db.LocationPlaceholder
	}
	if row.SubDistrict == "" {
		row.SubDistrict = db.LocationPlaceholder
	}
	return row, true
}

func getLocation(gdb *gorm.DB, id uint) (*db.Location, error) {
	var loc db.Location
	if err := gdb.First(&loc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}

// findOrCreateLocation 依赖三元组唯一索引：冲突时什么都不做，再按三元组读回
func findOrCreateLocation(gdb *gorm.DB, row LocationRow) (*db.Location, bool, error) {
	candidate := db.Location{
		ProvinceName: row.Province,
		DistrictName: row.District,
		SubDistrict:  row.SubDistrict,
	}
	res := gdb.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create location: %w", res.Error)
	}

	var loc db.Location
	if err := gdb.Where("province_name = ? AND district_name = ? AND sub_district = ?",
		row.Province, row.District, row.SubDistrict).First(&loc).Error; err != nil {
		return nil, false, fmt.Errorf("reload location: %w", err)
	}
	return &loc, res.RowsAffected > 0, nil
}
