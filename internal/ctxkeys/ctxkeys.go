package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	connIDKey contextKey = "conn_id"
	peerKey   contextKey = "peer"
)

// WithConnID 设置连接 ID
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnID 获取连接 ID
func ConnID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(connIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithPeer 设置对端地址
func WithPeer(ctx context.Context, peer string) context.Context {
	return context.WithValue(ctx, peerKey, peer)
}

// Peer 获取对端地址
func Peer(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(peerKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
