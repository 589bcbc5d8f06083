package entities

import (
	"time"
)

// Settings is the operator-edited configuration of the gateway.
// It is loaded once at startup and treated as read-only afterwards.
type Settings struct {
	// AllowAllUsers makes every real player a Standard-tier caller when no
	// allow-list rule matches. It never grants the Elevated tier.
	AllowAllUsers bool `json:"allow_all_users" yaml:"allow_all_users" env:"ALLOW_ALL_USERS"`

	// NormalUserIDs and NormalUsernames form the Standard tier.
	NormalUserIDs   []string `json:"normal_user_ids,omitempty" yaml:"normal_user_ids,omitempty" env:"NORMAL_USER_IDS"`
	NormalUsernames []string `json:"normal_usernames,omitempty" yaml:"normal_usernames,omitempty" env:"NORMAL_USERNAMES"`

	// SuperAdminUserIDs and SuperAdminUsernames form the Elevated tier.
	SuperAdminUserIDs   []string `json:"super_admin_user_ids,omitempty" yaml:"super_admin_user_ids,omitempty" env:"SUPER_ADMIN_USER_IDS"`
	SuperAdminUsernames []string `json:"super_admin_usernames,omitempty" yaml:"super_admin_usernames,omitempty" env:"SUPER_ADMIN_USERNAMES"`

	// SuperAdminUsersCodeSelfOnly scopes users.code to the caller even for
	// the Elevated tier.
	SuperAdminUsersCodeSelfOnly bool `json:"super_admin_users_code_self_only" yaml:"super_admin_users_code_self_only" env:"SUPER_ADMIN_USERS_CODE_SELF_ONLY"`

	// AllowedCodePrefixes restricts commands to ones starting with a listed
	// prefix. Empty allows any command.
	AllowedCodePrefixes []string `json:"allowed_code_prefixes,omitempty" yaml:"allowed_code_prefixes,omitempty" env:"ALLOWED_CODE_PREFIXES"`

	MaxCodeLength    int `json:"max_code_length" yaml:"max_code_length" env:"MAX_CODE_LENGTH" validate:"gt=0"`
	MaxOutputLines   int `json:"max_output_lines" yaml:"max_output_lines" env:"MAX_OUTPUT_LINES" validate:"gt=0"`
	EvalTimeoutMs    int `json:"eval_timeout_ms" yaml:"eval_timeout_ms" env:"EVAL_TIMEOUT_MS" validate:"gt=0"`
	PromiseTimeoutMs int `json:"promise_timeout_ms" yaml:"promise_timeout_ms" env:"PROMISE_TIMEOUT_MS" validate:"gt=0"`

	// WorkerCount and QueueSize bound the asynchronous submit queue.
	WorkerCount int `json:"worker_count" yaml:"worker_count" env:"WORKER_COUNT" validate:"gt=0,lte=256"`
	QueueSize   int `json:"queue_size" yaml:"queue_size" env:"QUEUE_SIZE" validate:"gt=0"`
}

// DefaultSettings returns deny-by-default settings.
func DefaultSettings() Settings {
	return Settings{
		SuperAdminUsersCodeSelfOnly: true,
		MaxCodeLength:               2000,
		MaxOutputLines:              60,
		EvalTimeoutMs:               2000,
		PromiseTimeoutMs:            5000,
		WorkerCount:                 4,
		QueueSize:                   256,
	}
}

// EvalTimeout is the synchronous execution budget.
func (s Settings) EvalTimeout() time.Duration {
	return time.Duration(s.EvalTimeoutMs) * time.Millisecond
}

// PromiseTimeout is the budget for awaiting an asynchronous result.
func (s Settings) PromiseTimeout() time.Duration {
	return time.Duration(s.PromiseTimeoutMs) * time.Millisecond
}

// SettingsOption adjusts Settings, mostly for tests and embedding hosts.
type SettingsOption func(*Settings)

// WithEvalTimeout sets the synchronous execution budget.
func WithEvalTimeout(d time.Duration) SettingsOption {
	return func(s *Settings) {
		if d > 0 {
			s.EvalTimeoutMs = int(d / time.Millisecond)
		}
	}
}

// WithPromiseTimeout sets the asynchronous result budget.
func WithPromiseTimeout(d time.Duration) SettingsOption {
	return func(s *Settings) {
		if d > 0 {
			s.PromiseTimeoutMs = int(d / time.Millisecond)
		}
	}
}

// WithMaxOutputLines sets the per-execution line budget.
func WithMaxOutputLines(n int) SettingsOption {
	return func(s *Settings) {
		if n > 0 {
			s.MaxOutputLines = n
		}
	}
}

// NewSettings returns DefaultSettings with opts applied.
func NewSettings(opts ...SettingsOption) Settings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
