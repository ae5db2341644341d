package config

import (
	"sync"

	"github.com/ninja0404/sol-trader/pkg/config/loader"
	"github.com/ninja0404/sol-trader/pkg/config/loader/memory"
	"github.com/ninja0404/sol-trader/pkg/config/reader"
	"github.com/ninja0404/sol-trader/pkg/config/reader/json"
	"github.com/ninja0404/sol-trader/pkg/config/source"
)

// Config 统一配置入口, 聚合多个配置源
type Config interface {
	reader.Values
	// Load 追加配置源
	Load(source ...source.Source) error
	// Sync 强制同步
	Sync() error
	// Close 停止配置监听
	Close() error
}

type Options struct {
	Loader loader.Loader
	Reader reader.Reader
	Source []source.Source
}

type Option func(o *Options)

type config struct {
	exit chan bool
	opts Options

	sync.RWMutex
	// 当前快照
	snap *loader.Snapshot
	// 当前解析结果
	vals reader.Values
}

var (
	// DefaultConfig 进程级默认配置实例
	DefaultConfig = NewConfig()
)

// NewConfig 创建配置实例
func NewConfig(opts ...Option) Config {
	options := Options{
		Loader: memory.NewLoader(),
		Reader: json.NewReader(),
	}

	for _, o := range opts {
		o(&options)
	}

	c := &config{
		exit: make(chan bool),
		opts: options,
	}

	go c.run()

	return c
}

// run 持续接收loader推送的新快照
func (c *config) run() {
	watch := func(w loader.Watcher) error {
		for {
			snap, err := w.Next()
			if err != nil {
				return err
			}

			c.Lock()
			c.snap = snap
			c.vals, _ = c.opts.Reader.Values(snap.ChangeSet)
			c.Unlock()
		}
	}

	for {
		w, err := c.opts.Loader.Watch()
		if err != nil {
			return
		}

		done := make(chan bool)
		go func() {
			select {
			case <-done:
			case <-c.exit:
			}
			w.Stop()
		}()

		err = watch(w)
		close(done)

		select {
		case <-c.exit:
			return
		default:
		}
		_ = err
	}
}

func (c *config) Load(sources ...source.Source) error {
	if err := c.opts.Loader.Load(sources...); err != nil {
		return err
	}

	snap, err := c.opts.Loader.Snapshot()
	if err != nil {
		return err
	}

	vals, err := c.opts.Reader.Values(snap.ChangeSet)
	if err != nil {
		return err
	}

	c.Lock()
	c.snap = snap
	c.vals = vals
	c.Unlock()

	return nil
}

func (c *config) Sync() error {
	if err := c.opts.Loader.Sync(); err != nil {
		return err
	}

	snap, err := c.opts.Loader.Snapshot()
	if err != nil {
		return err
	}

	vals, err := c.opts.Reader.Values(snap.ChangeSet)
	if err != nil {
		return err
	}

	c.Lock()
	c.snap = snap
	c.vals = vals
	c.Unlock()

	return nil
}

func (c *config) Close() error {
	select {
	case <-c.exit:
	default:
		close(c.exit)
	}
	return c.opts.Loader.Close()
}

func (c *config) Bytes() []byte {
	c.RLock()
	defer c.RUnlock()

	if c.vals == nil {
		return []byte{}
	}
	return c.vals.Bytes()
}

func (c *config) Get(path ...string) reader.Value {
	c.RLock()
	defer c.RUnlock()

	return c.vals.Get(path...)
}

func (c *config) Set(val interface{}, path ...string) {
	c.Lock()
	defer c.Unlock()

	if c.vals != nil {
		c.vals.Set(val, path...)
	}
}

func (c *config) Del(path ...string) {
	c.Lock()
	defer c.Unlock()

	if c.vals != nil {
		c.vals.Del(path...)
	}
}

func (c *config) Map() map[string]interface{} {
	c.RLock()
	defer c.RUnlock()

	return c.vals.Map()
}

func (c *config) Scan(v interface{}) error {
	c.RLock()
	defer c.RUnlock()

	return c.vals.Scan(v)
}

// Load 使用默认实例加载配置源
func Load(source ...source.Source) error {
	return DefaultConfig.Load(source...)
}

// Get 从默认实例读取配置节点
func Get(path ...string) reader.Value {
	return DefaultConfig.Get(path...)
}

// Scan 将默认实例整棵配置树解析到v
func Scan(v interface{}) error {
	return DefaultConfig.Scan(v)
}

// Close 关闭默认实例
func Close() error {
	return DefaultConfig.Close()
}
