package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemWarningsService_AddAndGet(t *testing.T) {
	svc := NewSystemWarningsService()

	id := svc.AddWarning(WarningCategoryChannelDelivery, "Feishu send failed", "webhook returned non-zero code", "feishu:alice")
	assert.NotEmpty(t, id)

	warnings := svc.GetWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningCategoryChannelDelivery, warnings[0].Category)
	assert.Equal(t, "Feishu send failed", warnings[0].Message)
	assert.Equal(t, "webhook returned non-zero code", warnings[0].Details)
	assert.Equal(t, "feishu:alice", warnings[0].ChannelKey)
	assert.False(t, warnings[0].CreatedAt.IsZero())
}

func TestSystemWarningsService_ClearByChannelKey(t *testing.T) {
	svc := NewSystemWarningsService()

	svc.AddWarning(WarningCategoryChannelDelivery, "send failed", "", "feishu:alice")
	svc.AddWarning(WarningCategoryChannelDelivery, "send failed", "", "email")

	assert.Len(t, svc.GetWarnings(), 2)

	cleared := svc.ClearByChannelKey(WarningCategoryChannelDelivery, "feishu:alice")
	assert.True(t, cleared)
	assert.Len(t, svc.GetWarnings(), 1)
	assert.Equal(t, "email", svc.GetWarnings()[0].ChannelKey)

	cleared = svc.ClearByChannelKey(WarningCategoryChannelDelivery, "nonexistent")
	assert.False(t, cleared)
}

func TestSystemWarningsService_ReplacesDuplicate(t *testing.T) {
	svc := NewSystemWarningsService()

	svc.AddWarning(WarningCategoryChannelDelivery, "First error", "err1", "sms")
	svc.AddWarning(WarningCategoryChannelDelivery, "Second error", "err2", "sms")

	warnings := svc.GetWarnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Second error", warnings[0].Message)
	assert.Equal(t, "err2", warnings[0].Details)
}

func TestSystemWarningsService_Empty(t *testing.T) {
	svc := NewSystemWarningsService()
	assert.Empty(t, svc.GetWarnings())
}

func TestSystemWarningsService_ThreadSafety(t *testing.T) {
	svc := NewSystemWarningsService()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.AddWarning("test", "msg", "", "")
		}()
	}

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.GetWarnings()
		}()
	}

	wg.Wait()
	assert.NotNil(t, svc.GetWarnings())
}
