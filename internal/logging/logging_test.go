package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNamedTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Str("component", "shard").Logger()
	l.Info().Msg("started")
	assert.Contains(t, buf.String(), `"component":"shard"`)
}
