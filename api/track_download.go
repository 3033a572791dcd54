// Package handler 是serverless平台的入口,平台按请求调用Handler
package handler

import (
	"net/http"
	"sync"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/d0ngw/dlcounter/counter"
	"github.com/d0ngw/dlcounter/download"
)

var (
	once    sync.Once
	handler http.Handler
)

// newHandler 从环境变量构建下载计数接口,存储未配置时接口返回降级的响应
func newHandler() http.Handler {
	logConf := &c.LogConfig{Env: c.EnvProduction, JSON: true, Level: c.FirstEnv("DLCOUNTER_LOG_LEVEL")}
	if err := logConf.Parse(); err != nil {
		c.Errorf("init logger fail,err:%v", err)
	}

	storeConf := &counter.StoreConf{Name: c.FirstEnv("DLCOUNTER_STORE_NAME")}
	if err := storeConf.Parse(); err != nil {
		c.Errorf("parse store conf fail,err:%v", err)
		storeConf = &counter.StoreConf{Name: storeConf.Name, Driver: counter.DriverNone}
	}
	counterConf := &counter.Conf{KeyPrefix: c.FirstEnv("DLCOUNTER_KEY_PREFIX")}
	if err := counterConf.Parse(); err != nil {
		c.Errorf("parse counter conf fail,err:%v", err)
		counterConf = &counter.Conf{}
	}
	return download.NewHandler(counter.NewDownloadCounter(storeConf.NewStore(), counterConf)).WithCORS()
}

// Handler serverless的入口
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() { handler = newHandler() })
	handler.ServeHTTP(w, r)
}
