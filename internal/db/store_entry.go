package db

import "gorm.io/gorm"

// StoreEntry 存储训练/专注数据的键值条目。
// 会话日志与各统计标量按独立的 Key 存放，Key 带版本后缀（如 workout.sessions.v1），
// 以便未来格式迁移时新旧数据共存。
type StoreEntry struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (StoreEntry) TableName() string {
	return "store_entries"
}
