package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type bindTarget struct {
	Nombre string  `json:"nombre"`
	Monto  float64 `json:"monto"`
}

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    bindTarget
	}{
		{
			name: "nested payload",
			body: `{"abono": {"nombre": "Cuota inicial", "monto": 1500.50}}`,
			want: bindTarget{Nombre: "Cuota inicial", Monto: 1500.50},
		},
		{
			name: "flat payload",
			body: `{"nombre": "Cuota inicial", "monto": 1500.50}`,
			want: bindTarget{Nombre: "Cuota inicial", Monto: 1500.50},
		},
		{
			name: "nested key wins over flat fields",
			body: `{"nombre": "afuera", "abono": {"nombre": "adentro"}}`,
			want: bindTarget{Nombre: "adentro"},
		},
		{
			name:    "invalid json",
			body:    `{"abono": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/abonos", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var got bindTarget
			err := BindNestedOrFlat(c, "abono", &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
