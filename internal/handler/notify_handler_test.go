package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailer struct {
	to, subject, body string
	fail              bool
}

func (m *stubMailer) Send(to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	if m.fail {
		return assert.AnError
	}
	return nil
}

func postSendEmail(t *testing.T, mail *stubMailer, payload string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/send-email", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	NewNotifyHandler(mail).SendEmail(c)
	return w
}

func TestSendEmailAcceptsWorkflowData(t *testing.T) {
	mail := &stubMailer{}
	w := postSendEmail(t, mail, `{
		"to": "seller@example.com",
		"subject": "Ownership Transfer Approved",
		"data": {
			"user": "Ali Khan",
			"action": "ownership transfer",
			"vehicle": "Honda Civic",
			"status": "approved"
		}
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "seller@example.com", mail.to)
	assert.Equal(t, "Ownership Transfer Approved", mail.subject)
	assert.Contains(t, mail.body, "Dear Ali Khan")
	assert.Contains(t, mail.body, "ownership transfer request for vehicle Honda Civic has been approved")
}

func TestSendEmailPlainBody(t *testing.T) {
	mail := &stubMailer{}
	w := postSendEmail(t, mail, `{"to":"a@b.com","subject":"Reminder","body":"Your challan is due."}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Your challan is due.", mail.body)
}

func TestSendEmailValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing recipient", `{"subject":"Hi","body":"x"}`},
		{"bad email", `{"to":"not-an-email","subject":"Hi","body":"x"}`},
		{"neither body nor data", `{"to":"a@b.com","subject":"Hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postSendEmail(t, &stubMailer{}, tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSendEmailDeliveryFailure(t *testing.T) {
	w := postSendEmail(t, &stubMailer{fail: true}, `{"to":"a@b.com","subject":"Hi","body":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
