package http

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	c "github.com/d0ngw/dlcounter/common"
	"golang.org/x/net/netutil"
)

type tcpKeepAliveListener struct {
	*net.TCPListener
}

// Accept 接受连接并开启keep alive
func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	if err = tc.SetKeepAlive(true); err != nil {
		tc.Close()
		return nil, err
	}
	if err = tc.SetKeepAlivePeriod(3 * time.Minute); err != nil {
		tc.Close()
		return nil, err
	}
	return tc, nil
}

// GraceableHandler 等待处理中的请求结束后才能关闭的处理器
type GraceableHandler struct {
	handler   http.Handler
	waitGroup *sync.WaitGroup
}

func (p *GraceableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.waitGroup.Add(1)
	defer p.waitGroup.Done()

	p.handler.ServeHTTP(w, r)
}

// Service Http服务
type Service struct {
	c.BaseService
	Conf         *Config
	listener     net.Listener
	graceHandler *GraceableHandler
	server       *http.Server
	lock         sync.Mutex
}

// NewService 创建Http服务
func NewService(conf *Config) *Service {
	return &Service{BaseService: c.BaseService{SName: "http", Order: 100}, Conf: conf}
}

// Init 初始化Http服务
func (p *Service) Init() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.Conf == nil {
		return errors.New("no http conf")
	}
	if err := p.Conf.Parse(); err != nil {
		return err
	}

	serveMux := http.NewServeMux()
	p.Conf.handlesMux.RLock()
	for pattern, handler := range p.Conf.handles {
		serveMux.Handle(pattern, Chain(handler, p.Conf.middlewares...))
	}
	p.Conf.handlesMux.RUnlock()

	graceHandler := &GraceableHandler{
		handler:   serveMux,
		waitGroup: &sync.WaitGroup{}}

	p.graceHandler = graceHandler
	p.server = &http.Server{
		Addr:         p.Conf.Addr,
		ReadTimeout:  time.Duration(p.Conf.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(p.Conf.WriteTimeout) * time.Second,
		Handler:      graceHandler}
	return nil
}

// Handler 返回已注册的所有处理器,需要在Init之后调用
func (p *Service) Handler() http.Handler {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.graceHandler == nil {
		return nil
	}
	return p.graceHandler
}

// Start 启动Http服务,开始端口监听和服务处理
func (p *Service) Start() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.server == nil {
		c.Errorf("http service not inited")
		return false
	}

	ln, err := net.Listen("tcp", p.Conf.Addr)
	if err != nil {
		c.Errorf("Listen at %s fail,error:%v", p.Conf.Addr, err)
		return false
	}
	c.Infof("Listen at %s", ln.Addr())

	var listener net.Listener = ln
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		listener = tcpKeepAliveListener{tcpLn}
	}
	if p.Conf.MaxConns > 0 {
		listener = netutil.LimitListener(listener, p.Conf.MaxConns)
	}
	p.listener = listener

	p.graceHandler.waitGroup.Add(1)
	go func(server *http.Server, wg *sync.WaitGroup) {
		defer wg.Done()
		err := server.Serve(listener)
		if err != nil {
			var errLevel = c.Error
			if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
				errLevel = c.Warn
			}
			c.Logf(errLevel, "server.Serve return with %v", err)
		}
	}(p.server, p.graceHandler.waitGroup)
	return true
}

// Addr 实际监听的地址
func (p *Service) Addr() (string, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.listener == nil {
		return "", fmt.Errorf("http service not started")
	}
	return p.listener.Addr().String(), nil
}

// Stop 停止Http服务,关闭端口监听并等待处理中的请求结束
func (p *Service) Stop() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.listener != nil {
		if err := p.listener.Close(); err != nil {
			c.Errorf("Close listener error:%v", err)
		}
	}

	if p.graceHandler != nil {
		c.Infof("Waiting shutdown")
		p.graceHandler.waitGroup.Wait()
		c.Infof("Finish shutdown")
	}
	if p.server != nil {
		p.server.SetKeepAlivesEnabled(false)
		_ = p.server.Close()
	}

	p.listener = nil
	p.graceHandler = nil
	p.server = nil
	return true
}
