package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestMSISDNValidation(t *testing.T) {
	v := validator.New()
	registerValidations(v)

	type req struct {
		Phone string `json:"phone" validate:"msisdn"`
	}
	for phone, valid := range map[string]bool{
		"254712345678":  true,
		"254112345678":  true,
		"0712345678":    false,
		"+254712345678": false,
		"25471234567":   false,
		"254812345678":  false,
	} {
		err := v.Struct(req{Phone: phone})
		assert.Equal(t, valid, err == nil, phone)
	}
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	SetupValidator()
	type body struct {
		Phone string `json:"phone" binding:"required,msisdn"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ValidationMessage(err)})
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"0712"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "phone must be a phone number")

	assert.Equal(t, "invalid request body", ValidationMessage(assert.AnError))
}
