package loader

import (
	"context"

	"github.com/ninja0404/sol-trader/pkg/config/reader"
	"github.com/ninja0404/sol-trader/pkg/config/source"
)

// Loader 管理多个配置源的读取与监听
type Loader interface {
	// Close 停止loader
	Close() error
	// Load 加载配置源
	Load(...source.Source) error
	// Snapshot 返回当前快照
	Snapshot() (*Snapshot, error)
	// Sync 强制同步所有配置源
	Sync() error
	// Watch 监听配置变化
	Watch(...string) (Watcher, error)
	// String loader名称
	String() string
}

// Watcher 由loader派生的配置监听器
type Watcher interface {
	Next() (*Snapshot, error)
	Stop() error
}

// Snapshot 合并后的配置快照
type Snapshot struct {
	// 合并后的changeset
	ChangeSet *source.ChangeSet
	// 快照版本号
	Version string
}

// Copy 深拷贝快照
func Copy(s *Snapshot) *Snapshot {
	cs := *(s.ChangeSet)

	data := make([]byte, len(cs.Data))
	copy(data, cs.Data)
	cs.Data = data

	return &Snapshot{
		ChangeSet: &cs,
		Version:   s.Version,
	}
}

type Options struct {
	Reader reader.Reader
	Source []source.Source

	// for alternative data
	Context context.Context
}

type Option func(o *Options)
