package middleware

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	tests := []struct {
		name string
		req  dto.UpdateConfigurationsRequest
		want []dto.ValidationDetail
	}{
		{
			name: "missing batch",
			req:  dto.UpdateConfigurationsRequest{},
			want: []dto.ValidationDetail{{Field: "configs", Message: "This field is required"}},
		},
		{
			name: "empty key",
			req: dto.UpdateConfigurationsRequest{Configurations: []dto.ConfigurationChange{
				{Key: "receipt_footer_message", Value: "ok"},
				{Value: "1"},
			}},
			want: []dto.ValidationDetail{{Field: "configs[1].key", Message: "This field is required"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, ValidationDetails(err))
		})
	}
}

func TestValidationDetails_NonValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
