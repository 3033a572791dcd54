// dlcounter 以独立的http服务运行下载计数接口
package main

import (
	"flag"
	"fmt"
	"os"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/d0ngw/dlcounter/counter"
	"github.com/d0ngw/dlcounter/download"
	h "github.com/d0ngw/dlcounter/http"
)

var (
	confDir   = flag.String("conf", "conf", "配置文件所在的目录")
	confFiles = flag.String("files", "dlcounter.yaml", "逗号分隔的配置文件")
	envFile   = flag.String("env", ".env", "环境变量文件")
)

type app struct {
	counter  *counter.DownloadCounter
	http     *h.Service
	services *c.Services
}

// setup 加载配置,创建需要启动的服务
func setup(config *Config) (*app, error) {
	if err := c.LoadEnv(*envFile); err != nil {
		return nil, fmt.Errorf("load env fail:%w", err)
	}
	if err := c.LoadConfig(config, "", *confDir, c.SplitTrimOmitEmpty(*confFiles, ",")...); err != nil {
		return nil, fmt.Errorf("load conf fail:%w", err)
	}
	if err := config.Parse(); err != nil {
		return nil, fmt.Errorf("parse conf fail:%w", err)
	}
	return newApp(config)
}

func newApp(config *Config) (*app, error) {
	dc := counter.NewDownloadCounter(config.Store.NewStore(), config.Counter)
	handler := download.NewHandler(dc)

	if err := config.HTTP.RegMiddleware(h.NewCORSMiddleware(download.AllowMethods...)); err != nil {
		return nil, err
	}
	if err := config.HTTP.RegMiddleware(h.AccessLogMiddleware); err != nil {
		return nil, err
	}
	if err := config.HTTP.RegHandler(config.Endpoint, handler); err != nil {
		return nil, err
	}
	httpSvc := h.NewService(config.HTTP)
	return &app{counter: dc, http: httpSvc, services: c.NewServices(dc, httpSvc)}, nil
}

func main() {
	flag.Parse()
	defer c.SyncLog()

	config := &Config{}
	a, err := setup(config)
	if err != nil {
		c.Errorf("%v", err)
		c.SyncLog()
		os.Exit(1)
	}
	services := a.services
	if !services.Init() || !services.Start() {
		c.Errorf("start dlcounter fail")
		services.Stop()
		c.SyncLog()
		os.Exit(1)
	}
	c.Infof("dlcounter started,endpoint:%s,store:%s(%s)", config.Endpoint, config.Store.Name, config.Store.Driver)

	hook := c.NewShutdownhook()
	hook.AddHook(func() { services.Stop() })
	hook.WaitShutdown()
}
