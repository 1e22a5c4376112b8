package config

// Config is the full on-disk configuration.
//
// The file may be YAML or JSON (YAML is coerced to JSON before strict
// decoding). All durations are Go duration strings (e.g. "500ms", "5s").
type Config struct {
	// AlertEndpoint is the base URL of the recording UI used to build deep
	// links in rendered messages (e.g. "http://127.0.0.1:81").
	AlertEndpoint string `json:"alert_endpoint"`

	MQTT MQTTConfig `json:"mqtt"`

	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
	Matrix   MatrixConfig   `json:"matrix"`
	Telegram TelegramConfig `json:"telegram"`

	Delivery DeliveryConfig `json:"delivery,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
	History  *HistoryConfig `json:"history,omitempty"`
}

// MQTTConfig configures the broker subscription.
type MQTTConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Topic     string `json:"topic"`
	DeviceID  string `json:"device_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	KeepAlive string `json:"keep_alive,omitempty"`
}

type DiscordConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ChannelID string `json:"channel_id"`
	BotName   string `json:"bot_name,omitempty"`
}

type SlackConfig struct {
	Enabled   bool   `json:"enabled"`
	Token     string `json:"token"`
	ChannelID string `json:"channel_id"`
	BotName   string `json:"bot_name,omitempty"`
	// SettleDelay is the wait between completing the file upload and posting
	// the message that references it. Slack reports uploads as ready before
	// they are retrievable; default "3s".
	SettleDelay string `json:"settle_delay,omitempty"`
}

type MatrixConfig struct {
	Enabled    bool   `json:"enabled"`
	Homeserver string `json:"homeserver"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	// RoomID is the fallback room when an alert's target is not a room id.
	RoomID  string `json:"room_id"`
	BotName string `json:"bot_name,omitempty"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	// ChatID is the fallback chat when an alert's target is not a chat id.
	ChatID  string `json:"chat_id"`
	BotName string `json:"bot_name,omitempty"`
}

// DeliveryConfig tunes the per-destination delivery workers.
type DeliveryConfig struct {
	// QueueSize bounds each destination's queue. When a destination stalls
	// and its queue fills up, the oldest queued alert is dropped so ingestion
	// never blocks.
	QueueSize int `json:"queue_size,omitempty"`
	// RatePerSec caps outbound sends per destination. 0 disables the limiter.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// SendTimeout bounds one delivery attempt end to end.
	SendTimeout string `json:"send_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console,omitempty"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// HistoryConfig controls the optional delivery history store. Alerts are never
// re-sent from the store; it exists for auditing and summaries only.
type HistoryConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// SummarySchedule is an optional cron spec; when set, a per-destination
	// delivery summary is logged on that schedule.
	SummarySchedule string `json:"summary_schedule,omitempty"`
}

// Default returns the built-in configuration, matching the documented
// defaults: loopback broker and recording UI, everything disabled.
func Default() *Config {
	return &Config{
		AlertEndpoint: "http://127.0.0.1:81",
		MQTT: MQTTConfig{
			Host:      "127.0.0.1",
			Port:      1884,
			Topic:     "bvr_chirp/#",
			DeviceID:  "bvr-chirp",
			KeepAlive: "5s",
		},
		Delivery: DeliveryConfig{
			QueueSize:   64,
			SendTimeout: "30s",
		},
		Logging: LoggingConfig{
			Level:   "INFO",
			Console: true,
		},
	}
}
