package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalEnvelope(t *testing.T) {
	raw, err := Marshal(MsgStartTopic, StartTopicPayload{Topic: "space", Context: "ctx"})
	require.NoError(t, err)

	kind, payload, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, MsgStartTopic, kind)

	p, err := UnmarshalPayload[StartTopicPayload](payload)
	require.NoError(t, err)
	assert.Equal(t, "space", p.Topic)
	assert.Equal(t, "ctx", p.Context)
}

func TestMarshalWithoutPayload(t *testing.T) {
	raw, err := Marshal(MsgStop, nil)
	require.NoError(t, err)

	kind, payload, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, MsgStop, kind)
	assert.Empty(t, payload)
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	_, _, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, _, err := Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}
