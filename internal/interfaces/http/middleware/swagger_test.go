package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		clientIP string
		want     int
	}{
		{"empty list allows everyone", nil, "203.0.113.9", http.StatusOK},
		{"exact ip", []string{"203.0.113.9"}, "203.0.113.9", http.StatusOK},
		{"cidr range", []string{"10.0.0.0/8"}, "10.20.30.40", http.StatusOK},
		{"outside list", []string{"10.0.0.0/8", "203.0.113.9"}, "198.51.100.1", http.StatusForbidden},
		{"only bad entries", []string{"not-an-ip"}, "198.51.100.1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := okRouter(SwaggerProtection(tt.allowed))
			w := serve(router, "GET", "/admin/", map[string]string{"X-Forwarded-For": tt.clientIP})
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
			}
		})
	}
}
