package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	c := Config{SaveMode: "db", WizardSessionTTLMinutes: 60, SaveTimeoutSeconds: 5, SessionLockTTLSecs: 30}
	assert.Error(t, c.Validate(), "missing JWT secret")

	c.JWTSecret = "secret"
	require.NoError(t, c.Validate())

	c.SaveMode = "remote"
	assert.Error(t, c.Validate(), "remote mode needs an endpoint")

	c.SaveEndpoint = "http://backend/api/onboarding"
	require.NoError(t, c.Validate())
	assert.True(t, c.IsRemoteSave())

	c.SaveMode = "kafka"
	assert.Error(t, c.Validate())
}

func TestValidateSaveTimeoutBelowLockTTL(t *testing.T) {
	c := Config{JWTSecret: "secret", SaveMode: "db", WizardSessionTTLMinutes: 60, SaveTimeoutSeconds: 30, SessionLockTTLSecs: 30}
	assert.Error(t, c.Validate())

	c.SaveTimeoutSeconds = 45
	assert.Error(t, c.Validate())

	c.SaveTimeoutSeconds = 0
	assert.Error(t, c.Validate())

	c.SaveTimeoutSeconds = 29
	assert.NoError(t, c.Validate())
}

func TestGetReplicaDSNs(t *testing.T) {
	c := Config{
		PostgreSQLPort:     "5432",
		PostgreSQLUser:     "u",
		PostgreSQLPassword: "p",
		PostgreSQLDatabase: "kvisit",
		PostgreSQLSSLMode:  "disable",
		PostgreSQLSchema:   "public",
		PostgreSQLReplicas: []string{"replica-1:6432", " ", "replica-2"},
	}

	dsns := c.GetReplicaDSNs()
	require.Len(t, dsns, 2)
	assert.Contains(t, dsns[0], "host=replica-1 port=6432")
	assert.Contains(t, dsns[1], "host=replica-2 port=5432")
}
