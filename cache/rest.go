package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/gomodule/redigo/redis"
)

// DefaultRESTTimeout REST请求的默认超时,单位毫秒
const DefaultRESTTimeout = 5 * 1000

// RESTConf 兼容Upstash REST协议的KV服务配置,如Vercel KV
type RESTConf struct {
	URL     string `yaml:"url"`     //服务地址
	Token   string `yaml:"token"`   //Bearer token
	Timeout int    `yaml:"timeout"` //请求超时,单位毫秒
}

// Parse implements Configurer
func (p *RESTConf) Parse() error {
	if p == nil {
		return nil
	}
	p.URL = strings.TrimRight(strings.TrimSpace(p.URL), "/")
	p.Token = strings.TrimSpace(p.Token)
	if p.URL != "" && !strings.HasPrefix(p.URL, "http://") && !strings.HasPrefix(p.URL, "https://") {
		return fmt.Errorf("invalid rest url %s", p.URL)
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultRESTTimeout
	}
	return nil
}

// IsEmpty 没有配置地址或token
func (p *RESTConf) IsEmpty() bool {
	return p == nil || p.URL == "" || p.Token == ""
}

// RESTClient 通过HTTP访问兼容Upstash REST协议的KV服务
type RESTClient struct {
	url    string
	token  string
	client *http.Client
}

// NewRESTClient 创建RESTClient,client为nil时使用按conf.Timeout设置超时的http.Client
func NewRESTClient(conf *RESTConf, client *http.Client) *RESTClient {
	if conf == nil {
		conf = &RESTConf{}
	}
	if client == nil {
		timeout := conf.Timeout
		if timeout <= 0 {
			timeout = DefaultRESTTimeout
		}
		client = &http.Client{Timeout: time.Duration(timeout) * time.Millisecond}
	}
	return &RESTClient{
		url:    strings.TrimRight(conf.URL, "/"),
		token:  conf.Token,
		client: client,
	}
}

type restReply struct {
	Result interface{} `json:"result"`
	Error  string      `json:"error"`
}

func (p *RESTClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	if p.url == "" || p.token == "" {
		return nil, ErrNotConfigured
	}
	payload, err := c.JSON.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var reply restReply
		if c.JSON.Unmarshal(data, &reply) == nil && reply.Error != "" {
			return nil, fmt.Errorf("status:%d,%w", resp.StatusCode, ReplyError(reply.Error))
		}
		return nil, fmt.Errorf("status:%d,msg:%s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}

// toReply 将JSON结果转换为与redigo一致的回复类型:整数为int64,字符串为[]byte
func toReply(v interface{}) interface{} {
	switch r := v.(type) {
	case json.Number:
		if i, err := r.Int64(); err == nil {
			return i
		}
		return []byte(r.String())
	case string:
		return []byte(r)
	case []interface{}:
		values := make([]interface{}, len(r))
		for i, e := range r {
			values[i] = toReply(e)
		}
		return values
	}
	return v
}

// Do 执行一条命令
func (p *RESTClient) Do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	body := make([]interface{}, 0, len(args)+1)
	body = append(body, cmd)
	body = append(body, args...)

	data, err := p.post(ctx, "", body)
	if err != nil {
		return nil, err
	}
	var reply restReply
	if err := c.UnmarshalUseNumber(data, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, ReplyError(reply.Error)
	}
	return toReply(reply.Result), nil
}

// Incr 原子地将param的值加1
func (p *RESTClient) Incr(ctx context.Context, param Param) (int64, error) {
	v, err := redis.Int64(p.Do(ctx, INCR, param.Key()))
	if err != nil {
		return 0, err
	}
	if param.Expire() > 0 {
		if _, err := p.Do(ctx, EXPIRE, param.Key(), param.Expire()); err != nil {
			c.Warnf("expire %s fail,err:%v", param.Key(), err)
		}
	}
	return v, nil
}

// GetInt64 取得param的整数值,ok为false表示key不存在
func (p *RESTClient) GetInt64(ctx context.Context, param Param) (v int64, ok bool, err error) {
	v, err = redis.Int64(p.Do(ctx, GET, param.Key()))
	if errors.Is(err, redis.ErrNil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Del 删除param,返回是否有key被删除
func (p *RESTClient) Del(ctx context.Context, param Param) (bool, error) {
	return redis.Bool(p.Do(ctx, DEL, param.Key()))
}

// Ping 检查服务的连通性
func (p *RESTClient) Ping(ctx context.Context) error {
	reply, err := redis.String(p.Do(ctx, PING))
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected ping reply:%s", reply)
	}
	return nil
}

// Transaction 通过multi-exec接口原子地执行cmds
func (p *RESTClient) Transaction(ctx context.Context, cmds ...*Cmd) ([]interface{}, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	body := make([][]interface{}, 0, len(cmds))
	for _, cmd := range cmds {
		body = append(body, append([]interface{}{cmd.Name}, cmd.args()...))
	}

	data, err := p.post(ctx, "/multi-exec", body)
	if err != nil {
		return nil, err
	}
	var replies []restReply
	if err := c.UnmarshalUseNumber(data, &replies); err != nil {
		var reply restReply
		if c.JSON.Unmarshal(data, &reply) == nil && reply.Error != "" {
			return nil, ReplyError(reply.Error)
		}
		return nil, err
	}
	if len(replies) != len(cmds) {
		return nil, fmt.Errorf("transaction reply count %d, expect %d", len(replies), len(cmds))
	}
	values := make([]interface{}, len(replies))
	for i, reply := range replies {
		if reply.Error != "" {
			return nil, fmt.Errorf("%s %s: %w", cmds[i].Name, cmds[i].Param.Key(), ReplyError(reply.Error))
		}
		values[i] = toReply(reply.Result)
	}
	return values, nil
}
