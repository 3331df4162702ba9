package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/visakit/pkg/channel"
	"github.com/dmitrymomot/visakit/pkg/notification"
)

func validEmailConfig() channel.EmailConfig {
	return channel.EmailConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "noreply@portal.example.com",
		SupportEmail:         "support@portal.example.com",
	}
}

func TestNewEmailAdapter_Validation(t *testing.T) {
	t.Parallel()

	resolver := staticResolver{notification.ChannelEmail: "applicant@example.com"}

	tests := []struct {
		name   string
		mutate func(cfg *channel.EmailConfig)
	}{
		{
			name:   "missing server token",
			mutate: func(cfg *channel.EmailConfig) { cfg.PostmarkServerToken = "" },
		},
		{
			name:   "missing account token",
			mutate: func(cfg *channel.EmailConfig) { cfg.PostmarkAccountToken = "" },
		},
		{
			name:   "missing sender",
			mutate: func(cfg *channel.EmailConfig) { cfg.SenderEmail = "" },
		},
		{
			name:   "malformed sender",
			mutate: func(cfg *channel.EmailConfig) { cfg.SenderEmail = "not-an-email" },
		},
		{
			name:   "malformed support address",
			mutate: func(cfg *channel.EmailConfig) { cfg.SupportEmail = "support@" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validEmailConfig()
			tt.mutate(&cfg)

			_, err := channel.NewEmailAdapter(cfg, resolver)
			assert.ErrorIs(t, err, channel.ErrInvalidConfig)
		})
	}

	t.Run("nil resolver", func(t *testing.T) {
		t.Parallel()

		_, err := channel.NewEmailAdapter(validEmailConfig(), nil)
		assert.ErrorIs(t, err, channel.ErrInvalidConfig)
	})

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()

		adapter, err := channel.NewEmailAdapter(validEmailConfig(), resolver)
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelEmail, adapter.Name())
	})
}

func TestMustNewEmailAdapter_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		channel.MustNewEmailAdapter(channel.EmailConfig{}, nil)
	})
}
