package slack

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Delivery modes.
const (
	ModeHTTP   = "http"
	ModeSocket = "socket"
)

// Token formats: bot tokens start with xoxb-, app-level tokens with xapp-.
var (
	botTokenPattern = regexp.MustCompile(`^xoxb-[A-Za-z0-9-]+$`)
	appTokenPattern = regexp.MustCompile(`^xapp-[A-Za-z0-9-]+$`)
)

// Config holds the Slack channel configuration.
type Config struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`
	AppToken      string `yaml:"app_token"`
	Mode          string `yaml:"mode"`
	Command       string `yaml:"command"`

	// TokenKey, if set, signs decision tokens with HMAC-SHA256.
	TokenKey string `yaml:"token_key"`

	// Source is the gateway webhook source name: POST /webhooks/<source>.
	Source string `yaml:"source"`

	APIURL string `yaml:"api_url"`

	// RatePerSecond and Burst bound outbound Web API calls.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`

	// Debug enables slack-go request logging.
	Debug bool `yaml:"debug"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = ModeHTTP
	}
	if c.Command == "" {
		c.Command = "/approval-test"
	}
	if c.Source == "" {
		c.Source = "slack"
	}
	if c.APIURL == "" {
		c.APIURL = "https://slack.com/api/"
	}
	if c.RatePerSecond == 0 {
		c.RatePerSecond = 1
	}
	if c.Burst == 0 {
		c.Burst = 5
	}
}

// validate checks configuration field constraints. It is called from
// Slack.Validate after defaults have been applied.
func (c *Config) validate() error {
	var errs []error

	switch {
	case c.BotToken == "":
		errs = append(errs, errors.New("slack: bot_token is required"))
	case !botTokenPattern.MatchString(c.BotToken):
		errs = append(errs, errors.New("slack: bot_token format invalid (expected xoxb-...)"))
	}

	switch c.Mode {
	case ModeHTTP:
		if c.SigningSecret == "" {
			errs = append(errs, errors.New("slack: signing_secret is required in http mode"))
		}
	case ModeSocket:
		switch {
		case c.AppToken == "":
			errs = append(errs, errors.New("slack: app_token is required in socket mode"))
		case !appTokenPattern.MatchString(c.AppToken):
			errs = append(errs, errors.New("slack: app_token format invalid (expected xapp-...)"))
		}
	default:
		errs = append(errs, fmt.Errorf("slack: invalid mode %q (must be %q or %q)", c.Mode, ModeHTTP, ModeSocket))
	}

	if !strings.HasPrefix(c.Command, "/") {
		errs = append(errs, fmt.Errorf("slack: command must start with '/', got %q", c.Command))
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.HasSuffix(c.APIURL, "/") {
		errs = append(errs, fmt.Errorf("slack: api_url must be an http/https URL ending in '/', got %q", c.APIURL))
	}

	if c.RatePerSecond < 0 || c.Burst < 0 {
		errs = append(errs, errors.New("slack: rate_per_second and burst must not be negative"))
	}

	return errors.Join(errs...)
}
