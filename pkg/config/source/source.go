package source

import (
	"crypto/md5"
	"errors"
	"fmt"
	"time"
)

// ErrWatcherStopped 监听器已停止
var ErrWatcherStopped = errors.New("watcher stopped")

// Source 配置源
type Source interface {
	Read() (*ChangeSet, error)
	Write(*ChangeSet) error
	Watch() (Watcher, error)
	String() string
}

// ChangeSet 配置源的一次快照
type ChangeSet struct {
	Data      []byte
	Checksum  string
	Format    string
	Source    string
	Timestamp time.Time
}

// Watcher 监听配置源变化
type Watcher interface {
	Next() (*ChangeSet, error)
	Stop() error
}

// Sum 返回配置数据的md5校验和
func (c *ChangeSet) Sum() string {
	h := md5.New()
	h.Write(c.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}
