// Package download 提供下载计数的http接口:
// POST记录一次下载,GET查询总数和当天的次数,OPTIONS用于跨域预检
package download

import (
	"context"
	"net/http"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/d0ngw/dlcounter/counter"
	h "github.com/d0ngw/dlcounter/http"
)

// DefaultPath 默认的接口路径
const DefaultPath = "/api/track-download"

// AllowMethods 接口支持的方法
var AllowMethods = []string{http.MethodPost, http.MethodGet, http.MethodOptions}

// Counter 下载计数
type Counter interface {
	StoreName() string
	Track(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (counter.Stats, error)
}

// TrackResp POST的响应
type TrackResp struct {
	Success bool  `json:"success"`
	Total   int64 `json:"total"`
}

// DegradedResp 存储不可用时的响应
type DegradedResp struct {
	Success bool   `json:"success"`
	Total   int64  `json:"total"`
	Note    string `json:"note"`
}

// ErrorResp 错误响应
type ErrorResp struct {
	Error string `json:"error"`
}

// Handler 下载计数接口,存储的错误不会以5xx返回给调用方
type Handler struct {
	counter Counter
	note    string
}

// NewHandler 创建Handler
func NewHandler(dc Counter) *Handler {
	return &Handler{counter: dc, note: dc.StoreName() + " not configured yet"}
}

// WithCORS 返回带有跨域头的http.Handler
func (p *Handler) WithCORS() http.Handler {
	return h.Chain(p, h.NewCORSMiddleware(AllowMethods...))
}

func (p *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	case http.MethodPost:
		total, err := p.counter.Track(r.Context())
		if err != nil {
			p.degrade(w, r, err)
			return
		}
		h.RenderJSON(w, &TrackResp{Success: true, Total: total})
	case http.MethodGet:
		stats, err := p.counter.Stats(r.Context())
		if err != nil {
			p.degrade(w, r, err)
			return
		}
		h.RenderJSON(w, &stats)
	default:
		h.RenderStatusJSON(w, http.StatusMethodNotAllowed, &ErrorResp{Error: "Method not allowed"})
	}
}

func (p *Handler) degrade(w http.ResponseWriter, r *http.Request, err error) {
	c.Errorf("%s %s store error:%v", r.Method, r.URL.Path, err)
	h.RenderJSON(w, &DegradedResp{Success: true, Total: 0, Note: p.note})
}
