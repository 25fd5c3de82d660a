package notify

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid" yaml:"account_sid"`
	AuthToken  string `mapstructure:"auth_token" yaml:"auth_token"`
	From       string `mapstructure:"from" yaml:"from"`
}

func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != ""
}

type TelegramConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

func (c TelegramConfig) Enabled() bool { return c.Token != "" }

type Config struct {
	Twilio   TwilioConfig   `mapstructure:"twilio" yaml:"twilio"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	// DryRun logs messages instead of sending them.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}
