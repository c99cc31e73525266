package resource

import (
	"fmt"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"compress-service/pkg/config"
)

var (
	mysqlResourceOnce sync.Once
	mysqlSingleton    *MysqlResource
)

// MysqlResource 管理 gorm 连接
type MysqlResource struct {
	db *gorm.DB
}

// DefaultMysqlResource 获取 MySQL 资源单例
func DefaultMysqlResource() *MysqlResource {
	mysqlResourceOnce.Do(func() {
		mysqlSingleton = &MysqlResource{}
	})
	return mysqlSingleton
}

func (r *MysqlResource) Name() string { return "mysql" }

func (r *MysqlResource) Enabled(cfg *config.Config) bool { return cfg.Database.Enabled }

// Open 建立连接并设置连接池
func (r *MysqlResource) Open(cfg *config.Config) error {
	if r.db != nil {
		return nil
	}
	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	r.db = db
	return nil
}

// MainDB 主库，未启用时为 nil
func (r *MysqlResource) MainDB() *gorm.DB {
	return r.db
}

func (r *MysqlResource) Close() {
	if r.db == nil {
		return
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	r.db = nil
}
