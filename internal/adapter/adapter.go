package adapter

import (
	"fmt"

	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// NewGateway 按 gateway.provider 从注册表创建网关实例
func NewGateway(cfg *config.GatewayConfig, logger *logrus.Logger) (interfaces.SportsGateway, error) {
	logger.WithField("factory_providers", ListFactories()).Debug("已注册的网关工厂")

	factory, ok := GetFactory(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("网关%s未注册（已注册：%v）", cfg.Provider, ListFactories())
	}
	gw, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化网关%s失败: %w", cfg.Provider, err)
	}
	if gw == nil {
		return nil, fmt.Errorf("网关%s工厂返回nil", cfg.Provider)
	}
	logger.WithField("provider", cfg.Provider).Info("体育数据网关初始化成功")
	return gw, nil
}
