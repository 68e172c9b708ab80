package service

import (
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// setupServiceTestDB 每个测试使用独立的内存库
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedLocation(t *testing.T, gdb *gorm.DB, province, district, sub string) db.Location {
	t.Helper()
	loc := db.Location{ProvinceName: province, DistrictName: district, SubDistrict: sub}
	if err := gdb.Create(&loc).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return loc
}

func principal(role access.Role, locationID uint) *access.Principal {
	return &access.Principal{UserID: 1, Username: "tester", Role: role, LocationID: locationID}
}
