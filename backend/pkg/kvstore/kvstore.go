// Package kvstore 带过期时间的键值存储抽象。
// 预览与对话记忆都是短期状态，生产环境落在 Redis，测试与单机部署可用内存实现。
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 键不存在或已过期
var ErrNotFound = errors.New("kvstore: 键不存在")

// Store 键值存储；值为不透明字节（调用方自行 JSON 编解码）
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 返回键在删除前是否存在
	Delete(ctx context.Context, key string) (bool, error)
}
