package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stuckPage never reaches the load state. Only WaitForLoadState is
// overridden; Validate must not touch anything else on this path.
type stuckPage struct {
	playwright.Page
}

func (stuckPage) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	return errors.New("timeout 10000ms exceeded")
}

func TestValidateReportsTimeoutReason(t *testing.T) {
	v := New(nil, nil)

	assessment, err := v.Validate(context.Background(), stuckPage{})

	require.Error(t, err)
	assert.False(t, assessment.Healthy)
	assert.Equal(t, "timeout", assessment.Reason)
}
