package repository

import (
	"fmt"

	"github.com/user/cinelog/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		// 唯一索引冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 自动迁移表结构（含唯一索引）
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.List{},
		&model.ListMembership{},
		&model.Movie{},
		&model.WatchedHistoryItem{},
		&model.Attendance{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB         *gorm.DB
	User       *UserRepository
	List       *ListRepository
	Membership *MembershipRepository
	Movie      *MovieRepository
	History    *HistoryRepository
	Attendance *AttendanceRepository
	Feed       *FeedRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:         db,
		User:       NewUserRepository(db),
		List:       NewListRepository(db),
		Membership: NewMembershipRepository(db),
		Movie:      NewMovieRepository(db),
		History:    NewHistoryRepository(db),
		Attendance: NewAttendanceRepository(db),
		Feed:       NewFeedRepository(db),
	}
}
