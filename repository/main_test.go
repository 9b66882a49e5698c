package repository

import (
	"fmt"
	"testing"
	"time"

	"cinema_booking/database"
	"cinema_booking/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedRoom(t *testing.T, db *gorm.DB) (model.Room, []model.Seat) {
	t.Helper()
	room := model.Room{Name: "Room 1", RoomNumber: 1}
	require.NoError(t, db.Create(&room).Error)
	seats := []model.Seat{
		{RoomId: room.ID, Row: "A", Column: 1, Category: "STANDARD", Price: 75000},
		{RoomId: room.ID, Row: "A", Column: 2, Category: "STANDARD", Price: 75000},
		{RoomId: room.ID, Row: "B", Column: 1, Category: "VIP", Price: 90000},
	}
	require.NoError(t, db.Create(&seats).Error)
	return room, seats
}
