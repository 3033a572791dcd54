package http

import (
	"net/http"
	"strings"
	"time"

	c "github.com/d0ngw/dlcounter/common"
)

// Middleware 中间件
type Middleware interface {
	// Handle 包装next
	Handle(next http.HandlerFunc) http.HandlerFunc
}

// MiddlewareFunc 函数形式的Middleware
type MiddlewareFunc func(next http.HandlerFunc) http.HandlerFunc

// Handle implements Middleware
func (f MiddlewareFunc) Handle(next http.HandlerFunc) http.HandlerFunc {
	return f(next)
}

// Chain 使用middlewares包装handler,第一个middleware在最外层
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	h := http.HandlerFunc(handler.ServeHTTP)
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Handle(h)
	}
	return h
}

// CORSMiddleware 在每个响应上设置跨域头
type CORSMiddleware struct {
	AllowOrigin  string
	AllowMethods []string
}

// NewCORSMiddleware 允许任意来源
func NewCORSMiddleware(methods ...string) *CORSMiddleware {
	return &CORSMiddleware{AllowOrigin: "*", AllowMethods: methods}
}

// Handle implements Middleware
func (p *CORSMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	methods := strings.Join(p.AllowMethods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", p.AllowOrigin)
		if methods != "" {
			header.Set("Access-Control-Allow-Methods", methods)
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (p *statusRecorder) WriteHeader(status int) {
	p.status = status
	p.ResponseWriter.WriteHeader(status)
}

// AccessLogMiddleware 以debug级别记录请求
var AccessLogMiddleware = MiddlewareFunc(func(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.DebugEnabled() {
			next(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		c.Debugf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	}
})
