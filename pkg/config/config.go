package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Load 启动时读一次，不做热更新
func Load(service string, out interface{}, paths ...string) (*viper.Viper, error) {
	v := newViper(service, paths...)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}
	log.Printf("[%s] config loaded from %s", service, v.ConfigFileUsed())
	return v, nil
}

func newViper(service string, paths ...string) *viper.Viper {
	v := viper.New()
	// 约定：config/{service}.yaml
	v.SetConfigName(service)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 环境变量覆盖，例如：
	//   REDPACKET_SERVICE_HTTP_ADDR 覆盖 http.addr
	//   REDPACKET_SERVICE_SIGNER_PRIVATE_KEY 覆盖 signer.private_key
	v.SetEnvPrefix(EnvPrefix(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// EnvPrefix 服务名转环境变量前缀，"-" 在环境变量里不合法
func EnvPrefix(service string) string {
	return strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
}
