// Package http 提供基本的http服务
package http

import (
	"fmt"
	"net/http"
	"sync"

	c "github.com/d0ngw/dlcounter/common"
)

// 默认的超时,单位秒
const (
	DefaultReadTimeout  = 10
	DefaultWriteTimeout = 10
)

// Config Http配置
type Config struct {
	Addr         string `yaml:"addr"`          //Http监听地址
	ReadTimeout  int    `yaml:"read_timeout"`  //读超时,单位秒
	WriteTimeout int    `yaml:"write_timeout"` //写超时,单位秒
	MaxConns     int    `yaml:"max_conns"`     //最大的并发连接数
	middlewares  []Middleware
	handles      map[string]http.Handler
	handlesMux   sync.RWMutex
}

// NewConfig 创建配置
func NewConfig(addr string) *Config {
	conf := &Config{Addr: addr}
	_ = conf.Parse()
	return conf
}

// Parse implements Configurer,填充默认值
func (p *Config) Parse() error {
	if p.Addr == "" {
		p.Addr = ":http"
	}
	if p.ReadTimeout <= 0 {
		p.ReadTimeout = DefaultReadTimeout
	}
	if p.WriteTimeout <= 0 {
		p.WriteTimeout = DefaultWriteTimeout
	}
	if p.MaxConns < 0 {
		return fmt.Errorf("invalid max_conns %d", p.MaxConns)
	}
	if p.handles == nil {
		p.handles = map[string]http.Handler{}
	}
	return nil
}

// RegHandler 注册patternPath的处理器
func (p *Config) RegHandler(patternPath string, handler http.Handler) error {
	if handler == nil {
		return fmt.Errorf("Can't reg nil handler to %s", patternPath)
	}
	p.handlesMux.Lock()
	defer p.handlesMux.Unlock()
	if p.handles == nil {
		p.handles = map[string]http.Handler{}
	}
	if _, ok := p.handles[patternPath]; ok {
		return fmt.Errorf("Duplicate ,path:%s", patternPath)
	}
	p.handles[patternPath] = handler
	c.Infof("Register handler %T,path:%s", handler, patternPath)
	return nil
}

// RegHandleFunc 注册patternPath的处理函数handlerFunc
func (p *Config) RegHandleFunc(patternPath string, handlerFunc http.HandlerFunc) error {
	if handlerFunc == nil {
		return fmt.Errorf("Can't reg nil handler to %s", patternPath)
	}
	return p.RegHandler(patternPath, handlerFunc)
}

// RegMiddleware 注册middleware,按照注册的顺序由外向内执行
func (p *Config) RegMiddleware(middleware Middleware) error {
	if middleware == nil {
		return fmt.Errorf("invalid middleware")
	}
	p.middlewares = append(p.middlewares, middleware)
	return nil
}
