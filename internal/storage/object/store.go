package object

import (
	"fmt"

	"profile-card/pkg/config"
)

// NewStore 根据配置创建对象存储
func NewStore(cfg config.ObjectConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "", "file":
		return NewFileStore(cfg.Root)
	default:
		return nil, fmt.Errorf("不支持的对象存储类型: %s", cfg.Type)
	}
}
