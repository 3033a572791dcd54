package counter

import (
	"context"
	"fmt"
	"strings"

	"github.com/d0ngw/dlcounter/cache"
	c "github.com/d0ngw/dlcounter/common"
	"github.com/gomodule/redigo/redis"
)

// 存储驱动
const (
	DriverRedis = "redis"
	DriverREST  = "rest"
	DriverNone  = "none"
)

// 默认的存储名称和hash tag
const (
	DefaultStoreName = "KV"
	DefaultHashTag   = "dlcounter"
)

// StoreConf 存储配置,Driver为空时按照已有的配置选择,REST优先
type StoreConf struct {
	Driver  string           `yaml:"driver"`
	Name    string           `yaml:"name"`     //存储的名称,出现在降级的提示中
	Group   string           `yaml:"group"`    //Redis组
	HashTag string           `yaml:"hash_tag"` //Redis组内按hash tag选择实例,所有计数落在同一个实例上
	Redis   *cache.RedisConf `yaml:"redis"`
	REST    *cache.RESTConf  `yaml:"rest"`
}

// ApplyEnv 使用环境变量覆盖存储的地址和凭证
func (p *StoreConf) ApplyEnv() {
	if u := c.FirstEnv("KV_REST_API_URL", "UPSTASH_REDIS_REST_URL"); u != "" {
		if p.REST == nil {
			p.REST = &cache.RESTConf{}
		}
		p.REST.URL = u
	}
	if t := c.FirstEnv("KV_REST_API_TOKEN", "UPSTASH_REDIS_REST_TOKEN"); t != "" {
		if p.REST == nil {
			p.REST = &cache.RESTConf{}
		}
		p.REST.Token = t
	}
	if u := c.FirstEnv("KV_URL", "REDIS_URL"); u != "" {
		if p.Redis == nil {
			p.Redis = &cache.RedisConf{}
		}
		p.Redis.URL = u
	}
}

// Parse implements Configurer
func (p *StoreConf) Parse() error {
	p.ApplyEnv()
	if p.Name == "" {
		p.Name = DefaultStoreName
	}
	if p.Group == "" {
		p.Group = cache.DefaultGroup
	}
	if p.HashTag == "" {
		p.HashTag = DefaultHashTag
	}
	if err := p.REST.Parse(); err != nil {
		return err
	}
	if err := p.Redis.Parse(); err != nil {
		return err
	}

	p.Driver = strings.ToLower(strings.TrimSpace(p.Driver))
	if p.Driver == "" {
		switch {
		case !p.REST.IsEmpty():
			p.Driver = DriverREST
		case !p.Redis.IsEmpty():
			p.Driver = DriverRedis
		default:
			p.Driver = DriverNone
		}
	}
	switch p.Driver {
	case DriverREST, DriverRedis, DriverNone:
	default:
		return fmt.Errorf("unknown store driver %s", p.Driver)
	}
	return nil
}

// NewStore 按照Driver创建Store,缺少配置时返回NopStore
func (p *StoreConf) NewStore() Store {
	switch p.Driver {
	case DriverREST:
		if !p.REST.IsEmpty() {
			return NewRESTStore(p.Name, cache.NewRESTClient(p.REST, nil))
		}
	case DriverRedis:
		if !p.Redis.IsEmpty() {
			return NewRedisStore(p.Name, p.Group, p.HashTag, p.Redis.NewRedisClient())
		}
	}
	c.Warnf("store %s(%s) not configured", p.Name, p.Driver)
	return NopStore(p.Name)
}

func toInt64s(replies []interface{}, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	values := make([]int64, len(replies))
	for i, reply := range replies {
		if values[i], err = redis.Int64(reply, nil); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func incrCmds(param *cache.ParamConf, keys []string) []*cache.Cmd {
	cmds := make([]*cache.Cmd, 0, len(keys))
	for _, key := range keys {
		cmds = append(cmds, cache.NewCmd(param.NewParamKey(key), cache.INCR))
	}
	return cmds
}

// RedisStore 使用Redis协议的存储
type RedisStore struct {
	name   string
	param  *cache.ParamConf
	client *cache.RedisClient
}

// NewRedisStore 创建RedisStore,hashTag非空时所有的key落在组内同一个实例上,
// 这样IncrAll的MULTI/EXEC不会跨实例
func NewRedisStore(name, group, hashTag string, client *cache.RedisClient) *RedisStore {
	return &RedisStore{name: name, param: cache.NewParamConf(group, "", 0).WithHashTag(hashTag), client: client}
}

// Name implements Store
func (p *RedisStore) Name() string {
	return p.name
}

// Incr implements Store
func (p *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return p.client.Incr(ctx, p.param.NewParamKey(key))
}

// Get implements Store
func (p *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return p.client.GetInt64(ctx, p.param.NewParamKey(key))
}

// IncrAll implements Store,使用MULTI/EXEC
func (p *RedisStore) IncrAll(ctx context.Context, keys ...string) ([]int64, error) {
	return toInt64s(p.client.Transaction(ctx, incrCmds(p.param, keys)...))
}

// Close implements Store
func (p *RedisStore) Close() error {
	return p.client.Close()
}

// RESTStore 使用REST协议的存储
type RESTStore struct {
	name   string
	param  *cache.ParamConf
	client *cache.RESTClient
}

// NewRESTStore 创建RESTStore
func NewRESTStore(name string, client *cache.RESTClient) *RESTStore {
	return &RESTStore{name: name, param: cache.NewParamConf(cache.DefaultGroup, "", 0), client: client}
}

// Name implements Store
func (p *RESTStore) Name() string {
	return p.name
}

// Incr implements Store
func (p *RESTStore) Incr(ctx context.Context, key string) (int64, error) {
	return p.client.Incr(ctx, p.param.NewParamKey(key))
}

// Get implements Store
func (p *RESTStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return p.client.GetInt64(ctx, p.param.NewParamKey(key))
}

// IncrAll implements Store,使用multi-exec
func (p *RESTStore) IncrAll(ctx context.Context, keys ...string) ([]int64, error) {
	return toInt64s(p.client.Transaction(ctx, incrCmds(p.param, keys)...))
}

// Close implements Store
func (p *RESTStore) Close() error {
	return nil
}

// NopStore 未配置的存储,所有操作都返回cache.ErrNotConfigured
type NopStore string

// Name implements Store
func (p NopStore) Name() string {
	return string(p)
}

// Incr implements Store
func (p NopStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, cache.ErrNotConfigured
}

// Get implements Store
func (p NopStore) Get(ctx context.Context, key string) (int64, bool, error) {
	return 0, false, cache.ErrNotConfigured
}

// IncrAll implements Store
func (p NopStore) IncrAll(ctx context.Context, keys ...string) ([]int64, error) {
	return nil, cache.ErrNotConfigured
}

// Close implements Store
func (p NopStore) Close() error {
	return nil
}
