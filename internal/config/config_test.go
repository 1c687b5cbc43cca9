package config

import (
	"testing"

	"github.com/bazaar-kiosk/api/internal/ordering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "Asia/Seoul", cfg.Location.String())
	assert.Equal(t, "sequence", cfg.Numbering)
	assert.Equal(t, "0 0 * * *", cfg.SequenceResetCron)
	assert.Equal(t, []string{"B1"}, cfg.Floors)
	assert.Equal(t, ordering.PolicyDineIn, cfg.TablePolicy.Mode)
	assert.Equal(t, []string{"B1"}, cfg.TablePolicy.TableFloors)
	assert.Equal(t, int32(101), cfg.TablePolicy.PickupMin)
	assert.Equal(t, int32(120), cfg.TablePolicy.PickupMax)
	assert.Equal(t, "3001", cfg.RolePins["KITCHEN"])
	assert.Len(t, cfg.RolePins, 5)
	assert.Empty(t, cfg.AMQPURL)
	assert.Equal(t, "bazaar.orders", cfg.AMQPExchange)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ORDER_NUMBERING", "counter")
	t.Setenv("FLOORS", "b1, f1")
	t.Setenv("TABLE_POLICY", "takeout-pickup-number")
	t.Setenv("TAKEOUT_PICKUP_RANGE", "201-230")
	t.Setenv("MIGRATIONS_DIR", "")
	t.Setenv("SEQUENCE_RESET_CRON", "")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "counter", cfg.Numbering)
	assert.Equal(t, []string{"B1", "F1"}, cfg.Floors)
	assert.Equal(t, ordering.PolicyTakeoutPickup, cfg.TablePolicy.Mode)
	assert.Equal(t, int32(201), cfg.TablePolicy.PickupMin)
	assert.Empty(t, cfg.MigrationsDir)
	assert.Empty(t, cfg.SequenceResetCron)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"ORDER_NUMBERING":      "uuid",
		"FLOORS":               "B2",
		"TABLE_POLICY":         "always",
		"TAKEOUT_PICKUP_RANGE": "120-101",
		"ROLE_PINS":            "CHEF:1234",
		"APP_TIMEZONE":         "Mars/Olympus",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestParseRolePins(t *testing.T) {
	pins, err := ParseRolePins("kitchen:3001, ORDER:1001")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"KITCHEN": "3001", "ORDER": "1001"}, pins)

	_, err = ParseRolePins("KITCHEN")
	assert.Error(t, err)

	_, err = ParseRolePins("")
	assert.Error(t, err)
}
