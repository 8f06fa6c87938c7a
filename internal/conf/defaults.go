// defaults.go: default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

type defaultSetter interface {
	SetDefault(key string, value any)
}

// setDefaultConfig sets defaults on the global viper instance.
func setDefaultConfig() {
	setDefaultsOn(viper.GetViper())
}

// setDefaultsOn applies the application defaults to the given viper instance.
func setDefaultsOn(v defaultSetter) {
	v.SetDefault("debug", false)

	v.SetDefault("main.name", "Vantazh")

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "vantazh.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "vantazh")
	v.SetDefault("output.mysql.database", "vantazh")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")

	v.SetDefault("notify.broadcast.workers", 4)
	v.SetDefault("notify.broadcast.perrecipienttimeout", 15*time.Second)

	v.SetDefault("notify.push.enabled", true)
	v.SetDefault("notify.push.ttlseconds", 3600)
	v.SetDefault("notify.push.timeout", 10*time.Second)

	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.rateperminute", 60)
	v.SetDefault("notify.email.timeout", 15*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.topic", "vantazh/dispatch")

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", "8080")
}
