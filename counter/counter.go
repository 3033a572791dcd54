// Package counter 提供下载计数服务,记录总下载次数和按UTC日期的下载次数
package counter

import (
	"context"
	"fmt"
	"strings"
	"time"

	c "github.com/d0ngw/dlcounter/common"
)

// 默认的key
const (
	DefaultKeyPrefix = "resume:downloads:"
	DefaultTotalKey  = "total"
)

// Store 计数器的存储,单个key的增加必须是原子的
type Store interface {
	// Name 存储的名称
	Name() string
	// Incr 原子地将key加1,key不存在时从0开始
	Incr(ctx context.Context, key string) (int64, error)
	// Get 取得key的值,ok为false表示key不存在
	Get(ctx context.Context, key string) (v int64, ok bool, err error)
	// IncrAll 在一个原子操作中将keys各加1,返回各自增加后的值
	IncrAll(ctx context.Context, keys ...string) ([]int64, error)
	// Close 释放存储的资源
	Close() error
}

// Conf 计数器的key配置
type Conf struct {
	KeyPrefix string `yaml:"key_prefix"`
	TotalKey  string `yaml:"total_key"`
}

// Parse implements Configurer
func (p *Conf) Parse() error {
	if p.KeyPrefix == "" {
		p.KeyPrefix = DefaultKeyPrefix
	}
	p.TotalKey = strings.TrimSpace(p.TotalKey)
	if p.TotalKey == "" {
		p.TotalKey = DefaultTotalKey
	}
	// 总数的key不能与某天的key冲突
	if _, err := c.ParseUTCDay(p.TotalKey); err == nil {
		return fmt.Errorf("total_key %s conflicts with daily keys", p.TotalKey)
	}
	return nil
}

// Stats 计数
type Stats struct {
	Total int64 `json:"total"`
	Today int64 `json:"today"`
}

// DownloadCounter 下载计数器,本身不保存任何状态,所有的计数都在Store中
type DownloadCounter struct {
	c.BaseService
	store     Store
	keyPrefix string
	totalKey  string
	clock     c.Clock
}

// NewDownloadCounter 创建DownloadCounter,conf为nil时使用默认的key
func NewDownloadCounter(store Store, conf *Conf) *DownloadCounter {
	if conf == nil {
		conf = &Conf{}
	}
	parsed := *conf
	if err := parsed.Parse(); err != nil {
		c.Errorf("invalid counter conf,use total key %s,err:%v", DefaultTotalKey, err)
		parsed.TotalKey = DefaultTotalKey
	}
	conf = &parsed
	return &DownloadCounter{
		BaseService: c.BaseService{SName: "download_counter"},
		store:       store,
		keyPrefix:   conf.KeyPrefix,
		totalKey:    conf.TotalKey,
		clock:       c.SystemClock,
	}
}

// WithClock 替换计数器使用的时钟
func (p *DownloadCounter) WithClock(clock c.Clock) *DownloadCounter {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Init implements Service.Init
func (p *DownloadCounter) Init() error {
	if c.HasNil(p.store, p.clock) {
		return fmt.Errorf("store and clock must be set")
	}
	return nil
}

// Stop 关闭存储
func (p *DownloadCounter) Stop() bool {
	if err := p.store.Close(); err != nil {
		c.Errorf("close %s store fail,err:%v", p.store.Name(), err)
		return false
	}
	return true
}

// StoreName 存储的名称
func (p *DownloadCounter) StoreName() string {
	return p.store.Name()
}

// TotalKey 总数的key
func (p *DownloadCounter) TotalKey() string {
	return p.keyPrefix + p.totalKey
}

// DayKey t所在UTC日期的key
func (p *DownloadCounter) DayKey(t time.Time) string {
	return p.keyPrefix + c.UTCDay(t)
}

// Track 记录一次下载,总数和当天的计数在同一个原子操作中加1,返回新的总数
func (p *DownloadCounter) Track(ctx context.Context) (int64, error) {
	totalKey, dayKey := p.TotalKey(), p.DayKey(p.clock())
	values, err := p.store.IncrAll(ctx, totalKey, dayKey)
	if err != nil {
		return 0, fmt.Errorf("incr %s,%s: %w", totalKey, dayKey, err)
	}
	if len(values) != 2 {
		return 0, fmt.Errorf("incr %s,%s: unexpected reply count %d", totalKey, dayKey, len(values))
	}
	c.Debugf("track download,total:%d,%s:%d", values[0], dayKey, values[1])
	return values[0], nil
}

// Stats 取得总数和当天的计数,不存在的计数为0
func (p *DownloadCounter) Stats(ctx context.Context) (Stats, error) {
	total, _, err := p.store.Get(ctx, p.TotalKey())
	if err != nil {
		return Stats{}, fmt.Errorf("get %s: %w", p.TotalKey(), err)
	}
	dayKey := p.DayKey(p.clock())
	today, _, err := p.store.Get(ctx, dayKey)
	if err != nil {
		return Stats{}, fmt.Errorf("get %s: %w", dayKey, err)
	}
	return Stats{Total: total, Today: today}, nil
}
