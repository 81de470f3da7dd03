package log

const (
	DefaultPattern    = "%time [%level] %field%msg%n"
	DefaultTimeLayout = "2006-01-02 15:04:05.000"
)

type LoggerConfig struct {
	Level     string           `mapstructure:"level"`
	Pattern   string           `mapstructure:"pattern"`
	Time      string           `mapstructure:"time"`
	Appenders []AppenderConfig `mapstructure:"appenders"`
	Caller    bool             `mapstructure:"caller"`
}

// AppenderConfig selects an output. Options are decoded per type, see
// FileAppenderOpt.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type"`
	Options map[string]interface{} `mapstructure:"options"`
}

// DefaultConfig logs at info level to stderr.
func DefaultConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     "info",
		Pattern:   DefaultPattern,
		Time:      DefaultTimeLayout,
		Appenders: []AppenderConfig{{Type: AppenderConsole}},
	}
}
