package memory

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/ninja0404/sol-trader/pkg/config/loader"
	"github.com/ninja0404/sol-trader/pkg/config/reader/json"
	"github.com/ninja0404/sol-trader/pkg/config/source"
)

type memory struct {
	exit chan bool
	opts loader.Options

	sync.RWMutex
	// 最近一次合并后的快照
	snap *loader.Snapshot
	// 每个配置源的最新changeset
	sets []*source.ChangeSet

	sources  []source.Source
	watchers []*watcher
}

type watcher struct {
	exit    chan bool
	updates chan *loader.Snapshot
}

// NewLoader 创建内存loader
func NewLoader(opts ...loader.Option) loader.Loader {
	options := loader.Options{
		Reader: json.NewReader(),
	}

	for _, o := range opts {
		o(&options)
	}

	m := &memory{
		exit: make(chan bool),
		opts: options,
	}

	for _, s := range options.Source {
		if err := m.Load(s); err != nil {
			panic(err)
		}
	}

	return m
}

func (m *memory) Load(sources ...source.Source) error {
	for _, s := range sources {
		set, err := s.Read()
		if err != nil {
			return err
		}

		m.Lock()
		m.sources = append(m.sources, s)
		m.sets = append(m.sets, set)
		idx := len(m.sets) - 1
		m.Unlock()

		go m.watchSource(idx, s)
	}

	return m.reload()
}

// reload 重新合并所有changeset并更新快照
func (m *memory) reload() error {
	m.Lock()
	sets := make([]*source.ChangeSet, len(m.sets))
	copy(sets, m.sets)
	m.Unlock()

	set, err := m.opts.Reader.Merge(sets...)
	if err != nil {
		return err
	}

	m.Lock()
	m.snap = &loader.Snapshot{
		ChangeSet: set,
		Version:   genVer(),
	}
	snap := loader.Copy(m.snap)
	watchers := make([]*watcher, len(m.watchers))
	copy(watchers, m.watchers)
	m.Unlock()

	// 广播给所有监听者
	for _, w := range watchers {
		select {
		case w.updates <- snap:
		default:
		}
	}

	return nil
}

// watchSource 监听单个配置源,变化后触发reload
func (m *memory) watchSource(idx int, s source.Source) {
	w, err := s.Watch()
	if err != nil {
		// 配置源不支持watch
		return
	}

	go func() {
		<-m.exit
		w.Stop()
	}()

	for {
		cs, err := w.Next()
		if err != nil {
			if errors.Is(err, source.ErrWatcherStopped) {
				return
			}
			time.Sleep(time.Second)
			continue
		}

		m.Lock()
		m.sets[idx] = cs
		m.Unlock()

		if err := m.reload(); err != nil {
			continue
		}
	}
}

func (m *memory) Snapshot() (*loader.Snapshot, error) {
	m.RLock()
	defer m.RUnlock()

	if m.snap == nil {
		return nil, errors.New("no snapshot loaded")
	}
	return loader.Copy(m.snap), nil
}

func (m *memory) Sync() error {
	m.Lock()
	for i, s := range m.sources {
		set, err := s.Read()
		if err != nil {
			m.Unlock()
			return err
		}
		m.sets[i] = set
	}
	m.Unlock()

	return m.reload()
}

func (m *memory) Watch(path ...string) (loader.Watcher, error) {
	w := &watcher{
		exit:    make(chan bool),
		updates: make(chan *loader.Snapshot, 1),
	}

	m.Lock()
	m.watchers = append(m.watchers, w)
	m.Unlock()

	return w, nil
}

func (m *memory) Close() error {
	select {
	case <-m.exit:
	default:
		close(m.exit)
	}
	return nil
}

func (m *memory) String() string {
	return "memory"
}

func (w *watcher) Next() (*loader.Snapshot, error) {
	select {
	case snap := <-w.updates:
		return snap, nil
	case <-w.exit:
		return nil, errors.New("watcher stopped")
	}
}

func (w *watcher) Stop() error {
	select {
	case <-w.exit:
	default:
		close(w.exit)
	}
	return nil
}

func genVer() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
