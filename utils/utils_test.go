package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	Id    int    `json:"Id"`
	Name  string `json:"Name"`
	Email string `json:"Email,omitempty"`
}

func TestStructToPayload(t *testing.T) {
	payload, err := StructToPayload(user{Id: 1, Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Id":    float64(1),
		"Name":  "Ada",
		"Email": "ada@example.com",
	}, payload)
}

func TestStructToPayload_OmitEmpty(t *testing.T) {
	payload, err := StructToPayload(&user{Id: 2, Name: "Grace"})
	require.NoError(t, err)

	_, present := payload["Email"]
	assert.False(t, present)
}

func TestStructToPayload_Invalid(t *testing.T) {
	_, err := StructToPayload(42)
	require.Error(t, err)

	var ptr *user
	_, err = StructToPayload(ptr)
	require.Error(t, err)
}

func TestPayloadToStruct(t *testing.T) {
	got, err := PayloadToStruct[user](map[string]any{"Id": 1, "Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, user{Id: 1, Name: "Ada"}, got)
}

func TestPayloadToStruct_Invalid(t *testing.T) {
	_, err := PayloadToStruct[user](nil)
	require.Error(t, err)

	_, err = PayloadToStruct[int](map[string]any{"Id": 1})
	require.Error(t, err)
}
