package conf

import (
	"time"

	"github.com/spf13/viper"
)

// defaultRegions are the Israeli district presets the explorer started with.
var defaultRegions = []map[string]any{
	{"name": "HaZafon (North)", "code": "IL-Z"},
	{"name": "HaMerkaz (Center)", "code": "IL-M"},
	{"name": "HaDarom (South)", "code": "IL-D"},
	{"name": "Haifa", "code": "IL-HA"},
	{"name": "Yerushalayim (Jerusalem)", "code": "IL-JM"},
	{"name": "Tel Aviv", "code": "IL-TA"},
}

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("ebird.apikey", "")
	v.SetDefault("ebird.apikeyfile", "")
	v.SetDefault("ebird.baseurl", "https://api.ebird.org/v2")
	v.SetDefault("ebird.timeout", 30*time.Second)
	v.SetDefault("ebird.ratelimit", 10.0)
	v.SetDefault("ebird.retries", 3)
	v.SetDefault("ebird.locale", "en")
	v.SetDefault("ebird.hotspotttl", time.Hour)
	v.SetDefault("ebird.observationttl", 10*time.Minute)
	v.SetDefault("ebird.taxonomyttl", 24*time.Hour)

	v.SetDefault("query.latitude", 32.0853)
	v.SetDefault("query.longitude", 34.7818)
	v.SetDefault("query.radiuskm", 25.0)
	v.SetDefault("query.backdays", 7)
	v.SetDefault("query.limit", 10)
	v.SetDefault("query.maxhotspots", 40)
	v.SetDefault("query.workers", 10)
	v.SetDefault("query.sortby", "species")

	v.SetDefault("regions", defaultRegions)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.readtimeout", 15*time.Second)
	v.SetDefault("server.writetimeout", 2*time.Minute)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.retention", 30*24*time.Hour)
	v.SetDefault("history.sqlite.enabled", true)
	v.SetDefault("history.sqlite.path", "hotspot-history.db")
	v.SetDefault("history.mysql.enabled", false)
	v.SetDefault("history.mysql.username", "")
	v.SetDefault("history.mysql.password", "")
	v.SetDefault("history.mysql.passwordfile", "")
	v.SetDefault("history.mysql.host", "localhost")
	v.SetDefault("history.mysql.port", "3306")
	v.SetDefault("history.mysql.database", "hotspot_explorer")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
