// internal/adapter/registry.go
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"DailyPick/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ========== 全局网关工厂注册表 ==========
var (
	registryMu      sync.RWMutex
	factoryRegistry = make(map[string]interfaces.Factory)
)

// Register 供各网关实现的 init 函数调用
func Register(provider string, factory interfaces.Factory) {
	if factory == nil {
		panic(fmt.Sprintf("网关%s的工厂函数不能为nil", provider))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := factoryRegistry[provider]; exists {
		logrus.Warnf("网关%s已注册，将覆盖原有实现", provider)
	}
	factoryRegistry[provider] = factory
}

// GetFactory 获取指定网关的工厂函数
func GetFactory(provider string) (interfaces.Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := factoryRegistry[provider]
	return factory, ok
}

// ListFactories 列出所有已注册的网关名（有序）
func ListFactories() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	providers := make([]string, 0, len(factoryRegistry))
	for p := range factoryRegistry {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}
