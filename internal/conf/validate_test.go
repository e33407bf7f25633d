package conf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
		count   int
	}{
		{name: "defaults", modify: func(*Settings) {}},
		{
			name:    "zero radius",
			modify:  func(s *Settings) { s.Census.HearingRadius = 0 },
			wantErr: true, count: 1,
		},
		{
			name:    "NaN radius",
			modify:  func(s *Settings) { s.Census.HearingRadius = math.NaN() },
			wantErr: true, count: 1,
		},
		{
			name:    "infinite radius",
			modify:  func(s *Settings) { s.Census.HearingRadius = math.Inf(1) },
			wantErr: true, count: 1,
		},
		{
			name:    "negative workers",
			modify:  func(s *Settings) { s.Census.Workers = -1 },
			wantErr: true, count: 1,
		},
		{
			name:    "unknown coordinate system",
			modify:  func(s *Settings) { s.Input.Coordinates = "utm" },
			wantErr: true, count: 1,
		},
		{
			name: "mqtt with bad broker and empty topic",
			modify: func(s *Settings) {
				s.Output.MQTT.Enabled = true
				s.Output.MQTT.Broker = "broker.local"
				s.Output.MQTT.Topic = " "
			},
			wantErr: true, count: 2,
		},
		{
			name: "mqtt disabled ignores broker",
			modify: func(s *Settings) {
				s.Output.MQTT.Broker = "::not a url"
			},
		},
		{
			name: "mqtt websocket broker",
			modify: func(s *Settings) {
				s.Output.MQTT.Enabled = true
				s.Output.MQTT.Broker = "wss://broker.local:8884/mqtt"
			},
		},
		{
			name: "sqlite without path",
			modify: func(s *Settings) {
				s.Output.SQLite.Enabled = true
				s.Output.SQLite.Path = ""
			},
			wantErr: true, count: 1,
		},
		{
			name: "metrics listen without port",
			modify: func(s *Settings) {
				s.Metrics.Enabled = true
				s.Metrics.Listen = "localhost"
			},
			wantErr: true, count: 1,
		},
		{
			name:    "telemetry without dsn",
			modify:  func(s *Settings) { s.Telemetry.Enabled = true },
			wantErr: true, count: 1,
		},
		{
			name: "bad log levels",
			modify: func(s *Settings) {
				s.Logging.DefaultLevel = "loud"
				s.Logging.ModuleLevels = map[string]string{"census": "quiet"}
			},
			wantErr: true, count: 2,
		},
		{
			name: "negative free space",
			modify: func(s *Settings) {
				s.Output.SQLite.MinFreeSpace = -1
			},
			wantErr: true, count: 1,
		},
		{
			name: "mqtt rate limit without burst",
			modify: func(s *Settings) {
				s.Output.MQTT.Enabled = true
				s.Output.MQTT.RateLimit = 5
				s.Output.MQTT.RateBurst = 0
			},
			wantErr: true, count: 1,
		},
		{
			name: "mqtt without rate limit",
			modify: func(s *Settings) {
				s.Output.MQTT.Enabled = true
				s.Output.MQTT.RateLimit = 0
				s.Output.MQTT.RateBurst = 0
			},
		},
		{
			name: "violations accumulate",
			modify: func(s *Settings) {
				s.Census.HearingRadius = -5
				s.Census.Workers = -1
				s.Input.Coordinates = ""
			},
			wantErr: true, count: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := Defaults()
			tt.modify(s)
			err := ValidateSettings(s)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Len(t, ve.Errors, tt.count, "errors: %v", ve.Errors)
		})
	}
}
