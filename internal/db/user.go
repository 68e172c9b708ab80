package db

import (
	"strings"
	"time"
)

// LocationPlaceholder 用于只选择了省（或省+县）时补齐缺失层级。
const LocationPlaceholder = "-"

// Location 省 / 县 / 区三级地点，创建后不可变。
// 三元组有唯一索引，避免并发注册时重复创建占位地点。
type Location struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ProvinceName string    `gorm:"size:120;not null;uniqueIndex:idx_locations_triple,priority:1" json:"provinceName"`
	DistrictName string    `gorm:"size:120;not null;uniqueIndex:idx_locations_triple,priority:2" json:"districtName"`
	SubDistrict  string    `gorm:"size:120;not null;uniqueIndex:idx_locations_triple,priority:3" json:"subDistrict"`
	CreatedAt    time.Time `json:"-"`
}

// IsPlaceholder 表示该地点缺少区（或县）级信息。
func (l Location) IsPlaceholder() bool {
	return l.SubDistrict == LocationPlaceholder
}

// Label 返回便于展示的层级名称。
func (l Location) Label() string {
	parts := []string{l.ProvinceName}
	if l.DistrictName != "" && l.DistrictName != LocationPlaceholder {
		parts = append(parts, l.DistrictName)
	}
	if l.SubDistrict != "" && l.SubDistrict != LocationPlaceholder {
		parts = append(parts, l.SubDistrict)
	}
	return strings.Join(parts, " / ")
}

// User 定义了门户账号，每个账号绑定一个地点
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Name         string    `gorm:"size:120;not null"`
	OrgName      string    `gorm:"size:200"`
	Role         string    `gorm:"size:32;not null;index"`
	LocationID   uint      `gorm:"not null;index"`
	Location     Location  `gorm:"constraint:OnDelete:RESTRICT"`
	IsApproved   bool      `gorm:"not null;default:false;index"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}
