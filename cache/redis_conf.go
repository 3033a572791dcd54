package cache

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/gomodule/redigo/redis"
)

// Redis连接池的默认参数
const (
	DefaultConnectTimout = 5 * 1000
	DefaultReadTimeout   = 5 * 1000
	DefaultWriteTimeout  = 5 * 1000
	DefaultMaxActive     = 100
	DefaultMaxIdle       = 2
	DefaultIdleTimeout   = 60 * 1000
)

// DefaultGroup 通过url配置的实例所在的组
const DefaultGroup = "default"

// RedisConfigurer Redis配置器
type RedisConfigurer interface {
	c.Configurer
	RedisConfig() *RedisConf
}

// RedisPoolConf  Redis连接池配置
type RedisPoolConf struct {
	ConnectTimeout int `yaml:"connect_timeout"` //连接超时时间,单位毫秒
	ReadTimeout    int `yaml:"read_timeout"`    //读取超时,单位毫秒
	WriteTimeout   int `yaml:"write_timeout"`   //写取超时,单位毫秒
	MaxIdle        int `yaml:"max_idle"`        //最大空闲连接
	MaxActive      int `yaml:"max_active"`      //最大活跃连接,0表示不限制
	IdleTimeout    int `yaml:"idle_timeout"`    //空闲连接的超时时间,单位毫秒
}

var defaultPool = &RedisPoolConf{
	ConnectTimeout: DefaultConnectTimout,
	ReadTimeout:    DefaultReadTimeout,
	WriteTimeout:   DefaultWriteTimeout,
	MaxActive:      DefaultMaxActive,
	MaxIdle:        DefaultMaxIdle,
	IdleTimeout:    DefaultIdleTimeout,
}

// RedisServer Redis实例的配置
type RedisServer struct {
	ID   string      `yaml:"id"`   //Redis实例的id
	URL  string      `yaml:"url"`  //redis://或rediss://形式的地址,设置后忽略Host和Port
	Host string      `yaml:"host"` //Redis主机地址
	Port int         `yaml:"port"` //Redis的端口
	Auth string      `yaml:"auth"` //Redis认证密码
	pool *redis.Pool //Redis实例的连接池
}

func (p *RedisServer) addr() string {
	if p.URL != "" {
		if u, err := url.Parse(p.URL); err == nil {
			return u.Host
		}
		return p.URL
	}
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// initPool 使用指定的参数初始化pool
func (p *RedisServer) initPool(poolConf *RedisPoolConf) error {
	if p.pool != nil {
		return fmt.Errorf("server %s already inited", p.ID)
	}
	options := []redis.DialOption{
		redis.DialConnectTimeout(time.Duration(poolConf.ConnectTimeout) * time.Millisecond),
		redis.DialReadTimeout(time.Duration(poolConf.ReadTimeout) * time.Millisecond),
		redis.DialWriteTimeout(time.Duration(poolConf.WriteTimeout) * time.Millisecond),
	}

	var dial func() (redis.Conn, error)
	if p.URL != "" {
		rawURL := p.URL
		dial = func() (redis.Conn, error) {
			return redis.DialURL(rawURL, options...)
		}
	} else {
		if p.Auth != "" {
			options = append(options, redis.DialPassword(p.Auth))
		}
		addr := p.addr()
		dial = func() (redis.Conn, error) {
			return redis.Dial("tcp", addr, options...)
		}
	}

	p.pool = &redis.Pool{
		Dial:        dial,
		MaxActive:   poolConf.MaxActive,
		MaxIdle:     poolConf.MaxIdle,
		IdleTimeout: time.Duration(poolConf.IdleTimeout) * time.Millisecond,
		Wait:        true,
	}
	return nil
}

// Close 关闭连接池
func (p *RedisServer) Close() error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Close()
}

// RedisConf redis config
type RedisConf struct {
	URL       string                    `yaml:"url"`          //单实例的地址,属于DefaultGroup
	Servers   []*RedisServer            `yaml:"servers"`      //实例列表
	Groups    map[string][]string       `yaml:"groups"`       //Redis组定义,key为组ID;value为Server的id列表
	Pool      *RedisPoolConf            `yaml:"pool"`         //默认的链接池配置
	GroupPool map[string]*RedisPoolConf `yaml:"groups_pools"` //Redis组的连接池配置
	groups    map[string][]*RedisServer
}

// Parse implements Configurer interface
func (p *RedisConf) Parse() error {
	if p == nil {
		c.Warnf("no redis conf")
		return nil
	}
	groups := map[string][]*RedisServer{}
	servers := map[string]*RedisServer{}
	groupDefs := map[string][]string{}
	for k, v := range p.Groups {
		groupDefs[k] = append([]string(nil), v...)
	}

	serverConfs := p.Servers
	if p.URL != "" {
		if _, err := url.Parse(p.URL); err != nil {
			return fmt.Errorf("invalid redis url:%w", err)
		}
		serverConfs = append(serverConfs, &RedisServer{ID: DefaultGroup, URL: p.URL})
		if _, ok := groupDefs[DefaultGroup]; !ok {
			groupDefs[DefaultGroup] = []string{DefaultGroup}
		}
	}

	//解析,并检查server的配置
	var dupCheck = map[string]struct{}{}
	for _, server := range serverConfs {
		if server.URL == "" {
			if c.IsEmpty(server.ID, server.Host) {
				return fmt.Errorf("invalid redis server conf,id and host must not be emtpy")
			}
			if server.Port <= 0 {
				return fmt.Errorf("invalid redis server conf,port %d ", server.Port)
			}
		} else if c.IsEmpty(server.ID) {
			return fmt.Errorf("invalid redis server conf,id must not be emtpy")
		}

		id := "id " + server.ID
		if _, ok := dupCheck[id]; ok {
			return fmt.Errorf("duplicate server:%s", id)
		}
		dupCheck[id] = struct{}{}

		addr := server.addr()
		if _, ok := dupCheck[addr]; ok {
			return fmt.Errorf("duplicate server: %s", addr)
		}
		dupCheck[addr] = struct{}{}
		servers[server.ID] = server
	}

	//解析并检查group
	for groupID, groupServers := range groupDefs {
		if groupID == "" {
			return fmt.Errorf("invalid redis group id")
		}
		if len(groupServers) == 0 {
			return fmt.Errorf("redis group id %s has no servers", groupID)
		}
		dupCheck = map[string]struct{}{}
		for _, serverID := range groupServers {
			if _, ok := dupCheck[serverID]; ok {
				return fmt.Errorf("duplicate server id %s in group  %s", serverID, groupID)
			}
			dupCheck[serverID] = struct{}{}
		}

		poolConf := p.GroupPool[groupID]
		if poolConf == nil {
			poolConf = p.Pool
		}
		if poolConf == nil {
			poolConf = defaultPool
		}

		//对redis实例进行排序,保证key到实例的映射稳定
		sort.Strings(groupServers)
		redisServers := make([]*RedisServer, 0, len(groupServers))
		for _, serverID := range groupServers {
			server := servers[serverID]
			if server == nil {
				return fmt.Errorf("can't find server id %s", serverID)
			}
			groupServer := *server
			groupServer.pool = nil
			if err := groupServer.initPool(poolConf); err != nil {
				return err
			}
			redisServers = append(redisServers, &groupServer)
		}
		groups[groupID] = redisServers
	}
	p.groups = groups
	return nil
}

// RedisConfig implements RedisConfigurer
func (p *RedisConf) RedisConfig() *RedisConf {
	return p
}

// IsEmpty 没有配置任何Redis实例
func (p *RedisConf) IsEmpty() bool {
	return p == nil || (p.URL == "" && len(p.Servers) == 0)
}

// NewRedisClient 使用解析后的配置创建RedisClient
func (p *RedisConf) NewRedisClient() *RedisClient {
	if p == nil {
		return NewRedisClient(nil)
	}
	return NewRedisClient(p.groups)
}
