package conf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepremicnine/user-managing/internal/conf"
)

func TestNewAppConfig(t *testing.T) {
	baseEnv := map[string]string{
		"SUPABASE_URL":              "https://project.supabase.co",
		"SUPABASE_KEY":              "anon-key",
		"SUPABASE_SERVICE_ROLE_KEY": "service-role-key",
		"SUPABASE_JWT_SECRET":       "jwt-secret",
	}

	withEnv := func(extra map[string]string) map[string]string {
		env := map[string]string{}
		for k, v := range baseEnv {
			env[k] = v
		}
		for k, v := range extra {
			env[k] = v
		}
		return env
	}

	tests := map[string]struct {
		env       map[string]string
		expConfig *conf.AppConfig
		expErr    bool
	}{
		"With the required environment the defaults should apply.": {
			env: baseEnv,
			expConfig: &conf.AppConfig{
				SupabaseURL:            "https://project.supabase.co",
				SupabaseKey:            "anon-key",
				SupabaseServiceRoleKey: "service-role-key",
				SupabaseJWTSecret:      "jwt-secret",
				ServerPort:             8080,
				RunMode:                conf.RunModeRelease,
			},
		},

		"The optional environment should override the defaults.": {
			env: withEnv(map[string]string{
				"USER_MANAGING_SERVER_PORT": "9090",
				"USER_MANAGING_SERVER_MODE": "debug",
				"FRONTEND_URL":              "https://front.example.com",
				"BACKEND_URL":               "https://back.example.com",
			}),
			expConfig: &conf.AppConfig{
				SupabaseURL:            "https://project.supabase.co",
				SupabaseKey:            "anon-key",
				SupabaseServiceRoleKey: "service-role-key",
				SupabaseJWTSecret:      "jwt-secret",
				FrontendURL:            "https://front.example.com",
				BackendURL:             "https://back.example.com",
				ServerPort:             9090,
				RunMode:                conf.RunModeDebug,
			},
		},

		"A missing Supabase URL should fail.": {
			env: map[string]string{
				"SUPABASE_KEY":              "anon-key",
				"SUPABASE_SERVICE_ROLE_KEY": "service-role-key",
				"SUPABASE_JWT_SECRET":       "jwt-secret",
			},
			expErr: true,
		},

		"A non URL Supabase URL should fail.": {
			env:    withEnv(map[string]string{"SUPABASE_URL": "not-a-url"}),
			expErr: true,
		},

		"A non numeric server port should fail.": {
			env:    withEnv(map[string]string{"USER_MANAGING_SERVER_PORT": "eighty"}),
			expErr: true,
		},

		"An unknown run mode should fail.": {
			env:    withEnv(map[string]string{"USER_MANAGING_SERVER_MODE": "turbo"}),
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			getenv := func(key string) string { return test.env[key] }
			config, err := conf.NewAppConfig(getenv)

			if test.expErr {
				assert.Error(err)
				return
			}

			require.NoError(err)
			assert.Equal(test.expConfig, config)
		})
	}
}

func TestAppConfigGraphQLURL(t *testing.T) {
	assert := assert.New(t)

	c := conf.AppConfig{SupabaseURL: "https://project.supabase.co"}
	assert.Equal("https://project.supabase.co/graphql/v1", c.GraphQLURL())
}
