package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"driftmail/backend/internal/domain"
	"driftmail/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）。
//
// 地址唯一性由 mailboxes 表的主键约束保证，重复创建依赖数据库的
// 原子唯一插入而非应用层锁，多进程部署下同样成立。
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"
}

// NewStore 创建 SQL 数据库存储。
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	switch driverName {
	case "mysql":
		gormDB, err = gorm.Open(gormmysql.New(gormmysql.Config{Conn: db}), gormConfig)
	case "postgres":
		gormDB, err = gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
	}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Migrate 自动创建或更新 mailboxes 与 messages 表结构。
func (s *Store) Migrate() error {
	return s.gormDB.AutoMigrate(&domain.Mailbox{}, &domain.Message{})
}

// CreateMailbox 注册新邮箱。
//
// 同一事务内先清掉同地址的过期残留（连同其邮件），再执行插入；
// 插入撞上仍有效的同地址记录时由主键约束拦下，
// 返回 storage.ErrMailboxExists。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("address = ? AND expires_at <= ?", mailbox.Address, time.Now().UTC()).
			Delete(&domain.Mailbox{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			if err := tx.Where("mailbox_address = ?", mailbox.Address).
				Delete(&domain.Message{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(mailbox).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrMailboxExists
	}
	return err
}

// GetMailboxByAddress 根据完整地址获取邮箱记录，不做过期判定。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.Where("address = ?", address).First(&mailbox).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// ListMailboxesByOwner 返回指定归属标签下的全部邮箱，含已过期记录。
func (s *Store) ListMailboxesByOwner(ownerLabel string) ([]domain.Mailbox, error) {
	var mailboxes []domain.Mailbox
	err := s.gormDB.Where("owner_label = ?", ownerLabel).
		Order("created_at ASC").
		Find(&mailboxes).Error
	if err != nil {
		return nil, err
	}
	return mailboxes, nil
}

// DeleteMailbox 删除指定邮箱及其全部邮件。
//
// 邮箱行与邮件行在同一事务内删除，不会出现撕裂状态。
func (s *Store) DeleteMailbox(address string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("address = ?", address).Delete(&domain.Mailbox{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrMailboxNotFound
		}
		return tx.Where("mailbox_address = ?", address).Delete(&domain.Message{}).Error
	})
}

// DeleteExpiredMailboxes 删除所有过期邮箱及其邮件，返回删除的邮箱数量。
func (s *Store) DeleteExpiredMailboxes(now time.Time) (int, error) {
	var count int64
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		var addresses []string
		if err := tx.Model(&domain.Mailbox{}).
			Where("expires_at <= ?", now).
			Pluck("address", &addresses).Error; err != nil {
			return err
		}
		if len(addresses) == 0 {
			return nil
		}
		if err := tx.Where("mailbox_address IN ?", addresses).
			Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		result := tx.Where("address IN ?", addresses).Delete(&domain.Mailbox{})
		count = result.RowsAffected
		return result.Error
	})
	return int(count), err
}

// AppendMessage 追加一封邮件。
//
// 同一事务内先对邮箱行加排他锁（SELECT ... FOR UPDATE）再插入，
// 与并发的删除/清理事务串行化：锁到手时邮箱行若已不在，
// 返回 storage.ErrMailboxNotFound，不可能写出失去归属的邮件行。
func (s *Store) AppendMessage(message *domain.Message) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockMailboxRow(tx, message.MailboxAddress); err != nil {
			return err
		}
		return tx.Create(message).Error
	})
}

// lockMailboxRow 在当前事务内锁定邮箱行。
// 行不存在（含已被并发事务删除）时返回 storage.ErrMailboxNotFound。
func (s *Store) lockMailboxRow(tx *gorm.DB, address string) error {
	var mailbox domain.Mailbox
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address).
		First(&mailbox).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrMailboxNotFound
	}
	return err
}

// ListMessages 按接收顺序返回邮箱内的全部邮件。
//
// 存在性判定与读取在同一事务内、持有邮箱行锁完成，
// 并发删除只能整体发生在本次读取之前（NotFound）或之后（完整列表），
// 不会读到"邮箱刚被删掉"的空列表。
func (s *Store) ListMessages(mailboxAddress string) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockMailboxRow(tx, mailboxAddress); err != nil {
			return err
		}
		return tx.Where("mailbox_address = ?", mailboxAddress).
			Order("seq ASC").
			Find(&messages).Error
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteAllMessages 清空邮箱内的全部邮件，返回删除数量。
func (s *Store) DeleteAllMessages(mailboxAddress string) (int, error) {
	var count int64
	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		if err := s.lockMailboxRow(tx, mailboxAddress); err != nil {
			return err
		}
		result := tx.Where("mailbox_address = ?", mailboxAddress).Delete(&domain.Message{})
		count = result.RowsAffected
		return result.Error
	})
	return int(count), err
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库连接是否正常。
func (s *Store) Health() error {
	return s.db.Ping()
}
