package domain

import "time"

// Message 表示投递到某个一次性邮箱的一封邮件。
//
// 邮件一经写入不再变更，只会随所属邮箱一起删除。
// Sender/Subject/Body 为入站事件中的原始文本，系统不做解释，
// 唯一的例外是尽力而为的验证码提取（见 code.go）。
type Message struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxAddress string    `json:"mailboxAddress" gorm:"type:varchar(255);index;not null"`
	Sender         string    `json:"sender" gorm:"type:varchar(255)"`
	Subject        string    `json:"subject" gorm:"type:varchar(500)"`
	Body           string    `json:"body" gorm:"type:text"`
	ReceivedAt     time.Time `json:"receivedAt" gorm:"index"`
	// Seq 由存储层递增分配，作为同一邮箱内 ReceivedAt 相同时的次序依据。
	Seq uint64 `json:"-" gorm:"autoIncrement;uniqueIndex"`
	// VerificationCode 是从正文中提取出的验证码，未命中时为空。
	// 不入库，仅在接收响应与查询结果中附带。
	VerificationCode string `json:"verificationCode,omitempty" gorm:"-"`
}
