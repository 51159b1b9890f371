package twitter

import (
	"context"

	"golang.org/x/sync/singleflight"
	"redpacket.com/internal/redpacket/domain"
)

type userIDResolver interface {
	ResolveUserID(ctx context.Context, token, handle string) (string, error)
}

// HandleResolver 先查缓存，未命中时同一个 handle 只发一次请求
type HandleResolver struct {
	client userIDResolver
	cache  HandleCache
	group  singleflight.Group
}

func NewHandleResolver(client userIDResolver, cache HandleCache) *HandleResolver {
	return &HandleResolver{client: client, cache: cache}
}

func (r *HandleResolver) Resolve(ctx context.Context, token, handle string) (string, error) {
	handle = domain.NormalizeHandle(handle)
	if id, ok := r.cache.Get(ctx, handle); ok {
		return id, nil
	}
	v, err, _ := r.group.Do(handle, func() (any, error) {
		id, err := r.client.ResolveUserID(ctx, token, handle)
		if err != nil {
			return "", err
		}
		r.cache.Set(ctx, handle, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
