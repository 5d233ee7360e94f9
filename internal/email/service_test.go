package email

import (
	"context"
	"testing"

	"github.com/fitclub/billing/internal/config"
	ierr "github.com/fitclub/billing/internal/errors"
	"github.com/fitclub/billing/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplateEscapesData(t *testing.T) {
	html, err := RenderTemplate(TemplateMemberNotification, map[string]interface{}{
		"name":  "<script>alert(1)</script>",
		"title": "Membership Frozen",
		"lines": []string{"Plan: Gold", "New End Date: 2025-02-10"},
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Membership Frozen")
	assert.Contains(t, html, "Plan: Gold")
	assert.Contains(t, html, "New End Date: 2025-02-10")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := RenderTemplate("missing.html", nil)
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestDisabledClientSkipsSend(t *testing.T) {
	cfg := config.GetDefaultConfig()
	svc := NewEmail(NewEmailClient(cfg), logger.NewNoopLogger())

	assert.False(t, svc.IsEnabled())

	resp, err := svc.SendEmail(context.Background(), SendEmailRequest{
		ToAddress: "member@example.com",
		Subject:   "hi",
		Text:      "hello",
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)

	tresp, err := svc.SendEmailWithTemplate(context.Background(), SendEmailWithTemplateRequest{
		ToAddress:    "member@example.com",
		Subject:      "hi",
		TemplatePath: TemplateMemberNotification,
	})
	require.NoError(t, err)
	assert.False(t, tresp.Success)
}
