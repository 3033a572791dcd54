// Package cache 提供KV存储的客户端,支持Redis协议和兼容Upstash的REST协议
package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured 没有配置可用的存储
	ErrNotConfigured = errors.New("kv store not configured")
	// ErrCrossSlot 事务中的key分布在不同的实例上
	ErrCrossSlot = errors.New("keys in transaction belong to different servers")
	// ErrEmptyReply 存储返回了空的回复
	ErrEmptyReply = errors.New("empty reply")
)

// Param is the cache param
type Param interface {
	//Group cache group id
	Group() string
	//Key cache key
	Key() string
	//Expire second time
	Expire() int
}

// HashTagger 指定了hash tag的Param,hash tag相同的key总是落在组内同一个实例上
type HashTagger interface {
	HashTag() string
}

// ParamConf is the cache param conf with cache group,key prefix and expire
type ParamConf struct {
	group     string
	keyPrefix string
	expire    int
	hashTag   string
}

// NewParamConf create ParamConf
func NewParamConf(group, keyPrefix string, expire int) *ParamConf {
	return &ParamConf{
		group:     group,
		keyPrefix: keyPrefix,
		expire:    expire,
	}
}

// Group return cache group
func (p *ParamConf) Group() string {
	return p.group
}

// Expire return expire second
func (p *ParamConf) Expire() int {
	return p.expire
}

// KeyPrefix return key prefix
func (p *ParamConf) KeyPrefix() string {
	return p.keyPrefix
}

// HashTag implements HashTagger,为空时按key选择实例
func (p *ParamConf) HashTag() string {
	return p.hashTag
}

// WithHashTag 返回使用hashTag选择实例的ParamConf
func (p *ParamConf) WithHashTag(hashTag string) *ParamConf {
	var param = *p
	param.hashTag = hashTag
	return &param
}

// NewWithKeyPrefix append keyPrefix to exist ParamConf,return new ParamConf
func (p *ParamConf) NewWithKeyPrefix(keyPrefix string) *ParamConf {
	var param = *p
	param.keyPrefix = p.keyPrefix + keyPrefix
	return &param
}

// NewParamKey create new ParamKey with key
func (p *ParamConf) NewParamKey(key string) *ParamKey {
	return &ParamKey{
		ParamConf: p,
		key:       p.keyPrefix + key,
	}
}

// ParamKey is the cache param with key
type ParamKey struct {
	*ParamConf
	key string
}

// Key implements Param.Key()
func (p *ParamKey) Key() string {
	return p.key
}

func (p *ParamKey) String() string {
	return fmt.Sprintf("%s/%s", p.group, p.key)
}

// Cmd 一条针对Param的命令,Param.Key()作为命令的第一个参数
type Cmd struct {
	Param Param
	Name  string
	Args  []interface{}
}

// NewCmd create Cmd
func NewCmd(param Param, name string, args ...interface{}) *Cmd {
	return &Cmd{Param: param, Name: name, Args: args}
}

func (p *Cmd) args() []interface{} {
	args := make([]interface{}, 0, len(p.Args)+1)
	args = append(args, p.Param.Key())
	return append(args, p.Args...)
}

// ReplyError 存储对单条命令返回的错误
type ReplyError string

func (p ReplyError) Error() string {
	return string(p)
}
