// Package config adapts Viper to plugin.Config and builds the process logger.
package config

import (
	"time"

	"github.com/HerbHall/ponplan/pkg/plugin"
	"github.com/spf13/viper"
)

var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig is a plugin.Config view over one Viper instance or sub-tree.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v yields an empty config, which is what plugins see
// when their section is absent from the config file.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// ForPlugin returns the "plugins.<name>" section of root.
func ForPlugin(root *viper.Viper, name string) *ViperConfig {
	return New(root.Sub("plugins." + name))
}

func (c *ViperConfig) Unmarshal(target any) error { return c.v.Unmarshal(target) }
func (c *ViperConfig) Get(key string) any { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) IsSet(key string) bool { return c.v.IsSet(key) }

// Sub returns the nested section at key, or an empty config when absent.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}

// Viper exposes the wrapped instance for top-level keys such as server.port.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}
