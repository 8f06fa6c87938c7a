package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidateSettings checks the loaded settings for configuration mistakes the
// service cannot recover from at runtime. It returns the first error found.
func ValidateSettings(settings *Settings) error {
	if err := validateOutput(&settings.Output); err != nil {
		return err
	}
	if err := validateNotify(&settings.Notify); err != nil {
		return err
	}
	if settings.MQTT.Enabled && settings.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt.enabled is true")
	}
	if settings.WebServer.Enabled {
		if _, err := strconv.Atoi(settings.WebServer.Port); err != nil {
			return fmt.Errorf("webserver.port must be numeric, got %q", settings.WebServer.Port)
		}
	}
	return nil
}

func validateOutput(output *OutputSettings) error {
	if !output.SQLite.Enabled && !output.MySQL.Enabled {
		return fmt.Errorf("either output.sqlite or output.mysql must be enabled")
	}
	if output.SQLite.Enabled && output.MySQL.Enabled {
		return fmt.Errorf("output.sqlite and output.mysql cannot both be enabled")
	}
	if output.SQLite.Enabled && strings.TrimSpace(output.SQLite.Path) == "" {
		return fmt.Errorf("output.sqlite.path is required when SQLite is enabled")
	}
	return nil
}

func validateNotify(notify *NotifySettings) error {
	if notify.Broadcast.Workers < 1 {
		return fmt.Errorf("notify.broadcast.workers must be at least 1, got %d", notify.Broadcast.Workers)
	}
	if notify.Broadcast.PerRecipientTimeout <= 0 {
		return fmt.Errorf("notify.broadcast.perrecipienttimeout must be positive")
	}
	if notify.Push.Enabled {
		if notify.Push.TTLSeconds < 0 {
			return fmt.Errorf("notify.push.ttlseconds cannot be negative")
		}
		if notify.Push.Timeout <= 0 {
			return fmt.Errorf("notify.push.timeout must be positive")
		}
	}
	if notify.Email.Enabled {
		if strings.TrimSpace(notify.Email.URL) == "" {
			return fmt.Errorf("notify.email.url is required when email is enabled")
		}
		if notify.Email.RatePerMinute < 0 {
			return fmt.Errorf("notify.email.rateperminute cannot be negative")
		}
	}
	return nil
}
