package domain

import (
	"time"
)

// Mailbox 表示一个一次性邮箱的登记记录。
//
// Address 是全局唯一标识，创建后不可变更；
// ExpiresAt 在创建时一次性确定（CreatedAt + TTL），不存在续期操作。
type Mailbox struct {
	Address    string    `json:"address" gorm:"primaryKey;type:varchar(255)"`
	LocalPart  string    `json:"localPart" gorm:"type:varchar(255)"`
	Domain     string    `json:"domain" gorm:"type:varchar(100);index"`
	OwnerLabel string    `json:"ownerLabel" gorm:"type:varchar(255);index"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"index"`
}

// IsLive 判断邮箱在 now 时刻是否仍然有效。
//
// 过期判定只依据 ExpiresAt 与当前时间，不依赖清理任务是否已经执行；
// 所有读路径统一使用该函数，保证"已过期即不可见"。
func IsLive(mb *Mailbox, now time.Time) bool {
	if mb == nil {
		return false
	}
	return now.Before(mb.ExpiresAt)
}
