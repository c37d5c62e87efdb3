package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from DocumentStatus
		to   DocumentStatus
		want bool
	}{
		{StatusPending, StatusStored, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusMetadataRegistered, false},
		{StatusStored, StatusMetadataRegistered, true},
		{StatusStored, StatusFailed, true},
		{StatusStored, StatusPending, false},
		{StatusMetadataRegistered, StatusDeleted, true},
		{StatusMetadataRegistered, StatusFailed, true},
		{StatusMetadataRegistered, StatusStored, false},
		{StatusFailed, StatusPending, true},
		{StatusFailed, StatusDeleted, true},
		{StatusFailed, StatusMetadataRegistered, false},
		{StatusDeleted, StatusPending, false},
		{StatusDeleted, StatusDeleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestDocumentStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusStored.Terminal())
	assert.True(t, StatusMetadataRegistered.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusDeleted.Terminal())
}

func TestDocument_Visible(t *testing.T) {
	doc := &Document{Status: StatusMetadataRegistered}
	assert.True(t, doc.Visible())

	for _, s := range []DocumentStatus{StatusPending, StatusStored, StatusFailed, StatusDeleted} {
		doc.Status = s
		assert.False(t, doc.Visible(), string(s))
	}
}
