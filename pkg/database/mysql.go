package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MySQLOptions MySQL 连接参数
type MySQLOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Charset  string
}

func (o MySQLOptions) DSN() string {
	charset := o.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		o.User, o.Password, o.Host, o.Port, o.Name, charset)
}

// InitMySQL 连接 MySQL，多个实例可以共享同一个存储槽
func InitMySQL(opts MySQLOptions) (*gorm.DB, error) {
	connection, err := gorm.Open(mysql.Open(opts.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	return connection, nil
}
