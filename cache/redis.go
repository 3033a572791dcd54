package cache

import (
	"context"
	"errors"
	"fmt"

	c "github.com/d0ngw/dlcounter/common"
	"github.com/gomodule/redigo/redis"
)

// Redis命令
const (
	GET     = "GET"
	SET     = "SET"
	DEL     = "DEL"
	INCR    = "INCR"
	INCRBY  = "INCRBY"
	EXISTS  = "EXISTS"
	EXPIRE  = "EXPIRE"
	PING    = "PING"
	MULTI   = "MULTI"
	EXEC    = "EXEC"
	DISCARD = "DISCARD"
)

// ReplyOK redis的OK回复
const ReplyOK = "OK"

// RedisClient 按组访问Redis,组内按key的hash选择实例
type RedisClient struct {
	groups map[string][]*RedisServer
}

// NewRedisClient 创建RedisClient
func NewRedisClient(groups map[string][]*RedisServer) *RedisClient {
	if groups == nil {
		groups = map[string][]*RedisServer{}
	}
	return &RedisClient{groups: groups}
}

func (p *RedisClient) server(param Param) (*RedisServer, error) {
	servers := p.groups[param.Group()]
	switch len(servers) {
	case 0:
		return nil, fmt.Errorf("redis group %q: %w", param.Group(), ErrNotConfigured)
	case 1:
		return servers[0], nil
	}
	routeKey := param.Key()
	if tagger, ok := param.(HashTagger); ok && tagger.HashTag() != "" {
		routeKey = tagger.HashTag()
	}
	return servers[int(MurmurHash32([]byte(routeKey), 0)%uint32(len(servers)))], nil
}

func (p *RedisClient) conn(ctx context.Context, server *RedisServer) (redis.Conn, error) {
	if server.pool == nil {
		return nil, fmt.Errorf("redis server %s: no pool", server.ID)
	}
	return server.pool.GetContext(ctx)
}

// Do 在param所在的实例上执行cmd,param.Key()由调用方放入args
func (p *RedisClient) Do(ctx context.Context, param Param, cmd string, args ...interface{}) (reply interface{}, err error) {
	server, err := p.server(param)
	if err != nil {
		return nil, err
	}
	conn, err := p.conn(ctx, server)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

// IncrBy 原子地将param的值增加delta,返回增加后的值
func (p *RedisClient) IncrBy(ctx context.Context, param Param, delta int64) (int64, error) {
	v, err := redis.Int64(p.Do(ctx, param, INCRBY, param.Key(), delta))
	if err != nil {
		return 0, err
	}
	if param.Expire() > 0 {
		if _, err := p.Expire(ctx, param); err != nil {
			c.Warnf("expire %s fail,err:%v", param.Key(), err)
		}
	}
	return v, nil
}

// Incr 原子地将param的值加1
func (p *RedisClient) Incr(ctx context.Context, param Param) (int64, error) {
	return p.IncrBy(ctx, param, 1)
}

// Set 设置param的值
func (p *RedisClient) Set(ctx context.Context, param Param, value interface{}) error {
	args := []interface{}{param.Key(), value}
	if param.Expire() > 0 {
		args = append(args, "EX", param.Expire())
	}
	reply, err := redis.String(p.Do(ctx, param, SET, args...))
	if err != nil {
		return err
	}
	if reply != ReplyOK {
		return fmt.Errorf("set %s reply:%s", param.Key(), reply)
	}
	return nil
}

// GetInt64 取得param的整数值,ok为false表示key不存在
func (p *RedisClient) GetInt64(ctx context.Context, param Param) (v int64, ok bool, err error) {
	v, err = redis.Int64(p.Do(ctx, param, GET, param.Key()))
	if errors.Is(err, redis.ErrNil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Exists 判断param是否存在
func (p *RedisClient) Exists(ctx context.Context, param Param) (bool, error) {
	return redis.Bool(p.Do(ctx, param, EXISTS, param.Key()))
}

// Expire 按照param.Expire()设置过期时间
func (p *RedisClient) Expire(ctx context.Context, param Param) (bool, error) {
	return redis.Bool(p.Do(ctx, param, EXPIRE, param.Key(), param.Expire()))
}

// Del 删除param,返回是否有key被删除
func (p *RedisClient) Del(ctx context.Context, param Param) (bool, error) {
	return redis.Bool(p.Do(ctx, param, DEL, param.Key()))
}

// Ping 检查group内所有实例的连通性
func (p *RedisClient) Ping(ctx context.Context, group string) error {
	servers := p.groups[group]
	if len(servers) == 0 {
		return fmt.Errorf("redis group %q: %w", group, ErrNotConfigured)
	}
	for _, server := range servers {
		conn, err := p.conn(ctx, server)
		if err != nil {
			return err
		}
		_, err = redis.String(redis.DoContext(conn, ctx, PING))
		conn.Close()
		if err != nil {
			return fmt.Errorf("ping redis %s fail:%w", server.ID, err)
		}
	}
	return nil
}

// Transaction 使用MULTI/EXEC原子地执行cmds,所有的key必须在同一个实例上,
// 组内有多个实例时cmds应使用相同的hash tag;
// 返回每条命令的回复,整数回复为int64
func (p *RedisClient) Transaction(ctx context.Context, cmds ...*Cmd) ([]interface{}, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	var server *RedisServer
	for _, cmd := range cmds {
		s, err := p.server(cmd.Param)
		if err != nil {
			return nil, err
		}
		if server != nil && s != server {
			return nil, ErrCrossSlot
		}
		server = s
	}

	conn, err := p.conn(ctx, server)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.Send(MULTI); err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		if err := conn.Send(cmd.Name, cmd.args()...); err != nil {
			return nil, err
		}
	}
	replies, err := redis.Values(redis.DoContext(conn, ctx, EXEC))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("transaction aborted: %w", ErrEmptyReply)
	}
	if err != nil {
		return nil, err
	}
	if len(replies) != len(cmds) {
		return nil, fmt.Errorf("transaction reply count %d, expect %d", len(replies), len(cmds))
	}
	for i, reply := range replies {
		if e, ok := reply.(redis.Error); ok {
			return nil, fmt.Errorf("%s %s: %w", cmds[i].Name, cmds[i].Param.Key(), ReplyError(e.Error()))
		}
	}
	return replies, nil
}

// Close 关闭所有的连接池
func (p *RedisClient) Close() error {
	var firstErr error
	for _, servers := range p.groups {
		for _, server := range servers {
			if err := server.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
