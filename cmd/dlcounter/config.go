package main

import (
	"strings"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/d0ngw/dlcounter/counter"
	"github.com/d0ngw/dlcounter/download"
	h "github.com/d0ngw/dlcounter/http"
)

// Config 下载计数服务的配置
type Config struct {
	c.AppConfig `yaml:",inline"`
	HTTP        *h.Config          `yaml:"http"`
	Endpoint    string             `yaml:"endpoint"`
	Store       *counter.StoreConf `yaml:"store"`
	Counter     *counter.Conf      `yaml:"counter"`
}

// Parse implements Configurer
func (p *Config) Parse() error {
	if p.LogConfig == nil {
		p.LogConfig = &c.LogConfig{}
	}
	if p.HTTP == nil {
		p.HTTP = &h.Config{}
	}
	if p.Store == nil {
		p.Store = &counter.StoreConf{}
	}
	if p.Counter == nil {
		p.Counter = &counter.Conf{}
	}
	p.applyEnv()
	p.Endpoint = strings.TrimSpace(p.Endpoint)
	if p.Endpoint == "" {
		p.Endpoint = download.DefaultPath
	}
	return c.Parse(p)
}

// applyEnv 使用环境变量覆盖配置,与serverless入口使用相同的变量
func (p *Config) applyEnv() {
	if addr := c.FirstEnv("DLCOUNTER_ADDR"); addr != "" {
		p.HTTP.Addr = addr
	}
	if level := c.FirstEnv("DLCOUNTER_LOG_LEVEL"); level != "" {
		p.LogConfig.Level = level
	}
	if name := c.FirstEnv("DLCOUNTER_STORE_NAME"); name != "" {
		p.Store.Name = name
	}
	if prefix := c.FirstEnv("DLCOUNTER_KEY_PREFIX"); prefix != "" {
		p.Counter.KeyPrefix = prefix
	}
}
