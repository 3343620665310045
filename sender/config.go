package sender

import (
	"time"

	"github.com/prilive-com/strmbot/internal/httpclient"
	"github.com/prilive-com/strmbot/tg"
)

// Config holds sender configuration.
type Config struct {
	// Bot token
	Token tg.SecretToken

	// API settings
	BaseURL string
	HTTP    httpclient.Config

	// Rate limiting
	GlobalRPS       float64
	GlobalBurst     int
	PerChatRPS      float64
	PerChatBurst    int
	GroupRPS        float64 // Rate limit for group chats (negative chat IDs). 0 = use PerChatRPS.
	GroupBurst      int     // Burst for group chats. 0 = use PerChatBurst.
	MaxChatLimiters int     // Cap on per-chat limiters. 0 = 10000.

	// API-level retry on 429 and 5xx
	MaxRetries    int
	RetryBaseWait time.Duration
	RetryMaxWait  time.Duration
	RetryFactor   float64

	// Content limits
	MaxTextLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:         tg.DefaultAPIBaseURL,
		HTTP:            httpclient.DefaultConfig(),
		GlobalRPS:       30,
		GlobalBurst:     10,
		PerChatRPS:      1,
		PerChatBurst:    3,
		GroupRPS:        0.33, // ~20/min
		GroupBurst:      2,
		MaxChatLimiters: 10000,
		MaxRetries:      3,
		RetryBaseWait:   time.Second,
		RetryMaxWait:    30 * time.Second,
		RetryFactor:     2.0,
		MaxTextLength:   4096,
	}
}
