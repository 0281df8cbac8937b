package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewObjectStore(t *testing.T) {
	tests := []struct {
		name      string
		opts      ObjectStoreOptions
		wantError bool
	}{
		{
			name: "anonymous access",
			opts: ObjectStoreOptions{
				Endpoint: "play.min.io",
				Bucket:   "public-data",
				Key:      "annotations.csv",
				UseSSL:   true,
			},
		},
		{
			name: "with credentials",
			opts: ObjectStoreOptions{
				Endpoint:  "localhost:9000",
				Bucket:    "data",
				Key:       "a.csv",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
			},
		},
		{
			name:      "missing endpoint",
			opts:      ObjectStoreOptions{Bucket: "b", Key: "k"},
			wantError: true,
		},
		{
			name:      "missing key",
			opts:      ObjectStoreOptions{Endpoint: "localhost:9000", Bucket: "b"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl, err := NewObjectStore(tt.opts)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, dl)
		})
	}
}
