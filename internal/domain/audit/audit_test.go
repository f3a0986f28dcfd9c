package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_StripsCredentials(t *testing.T) {
	in := map[string]any{
		"id":            "u1",
		"Password":      "hunter2",
		"refresh_token": "abc",
		"apiSecret":     "xyz",
		"email":         "a@b.c",
	}

	got := Snapshot(in)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got["id"])
	assert.Equal(t, "a@b.c", got["email"])
	assert.NotContains(t, got, "Password")
	assert.NotContains(t, got, "refresh_token")
	assert.NotContains(t, got, "apiSecret")
}

func TestSnapshot_NilAndNonObject(t *testing.T) {
	assert.Nil(t, Snapshot(nil))
	assert.Nil(t, Snapshot("just a string"))
	assert.Nil(t, Snapshot(make(chan int)))
}

func TestSnapshot_Struct(t *testing.T) {
	type record struct {
		ID    string `json:"id"`
		Total int    `json:"total"`
	}
	got := Snapshot(record{ID: "o1", Total: 1200})
	require.NotNil(t, got)
	assert.Equal(t, "o1", got["id"])
	assert.EqualValues(t, 1200, got["total"])
}
