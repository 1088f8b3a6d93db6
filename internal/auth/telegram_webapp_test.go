package auth

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "test-bot-token-12345"

func buildInitData(botToken string, authDate time.Time, extra map[string]string) string {
	params := url.Values{}
	params.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	for k, v := range extra {
		params.Set(k, v)
	}
	params.Set("hash", initDataHash(params, botToken))
	return params.Encode()
}

func TestValidateTelegramWebAppData(t *testing.T) {
	tests := []struct {
		name     string
		initData string
		token    string
		wantErr  string
	}{
		{
			name:     "valid",
			initData: buildInitData(testBotToken, time.Now().Add(-30*time.Second), map[string]string{"query_id": "q1"}),
			token:    testBotToken,
		},
		{
			name:     "expired",
			initData: buildInitData(testBotToken, time.Now().Add(-10*time.Minute), nil),
			token:    testBotToken,
			wantErr:  "expired",
		},
		{
			name:     "future",
			initData: buildInitData(testBotToken, time.Now().Add(5*time.Minute), nil),
			token:    testBotToken,
			wantErr:  "future",
		},
		{
			name:     "wrong token",
			initData: buildInitData("other-token", time.Now(), nil),
			token:    testBotToken,
			wantErr:  "invalid hash",
		},
		{
			name:     "missing hash",
			initData: "auth_date=" + strconv.FormatInt(time.Now().Unix(), 10),
			token:    testBotToken,
			wantErr:  "hash is missing",
		},
		{
			name:     "missing auth_date",
			initData: "hash=abc",
			token:    testBotToken,
			wantErr:  "auth_date is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTelegramWebAppData(tt.initData, tt.token, 5*time.Minute)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseWebAppUser(t *testing.T) {
	initData := buildInitData(testBotToken, time.Now(), map[string]string{
		"user": `{"id":123456,"first_name":"Test","username":"testuser"}`,
	})

	u, err := ParseWebAppUser(initData, testBotToken, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), u.ID)
	assert.Equal(t, "testuser", u.Username)

	_, err = ParseWebAppUser(buildInitData(testBotToken, time.Now(), nil), testBotToken, 0)
	assert.ErrorIs(t, err, ErrNoTelegramUser)
}
