package model

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// is_activeがDBのdefault trueだと、falseで作ったつもりの行がtrueで保存される
func TestIsActive_HasNoTrueDefault(t *testing.T) {
	for name, m := range map[string]any{
		"coupon":         &Coupon{},
		"payment_method": &PaymentMethod{},
		"product":        &Product{},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := schema.Parse(m, &sync.Map{}, schema.NamingStrategy{})
			require.NoError(t, err)

			f := s.LookUpField("IsActive")
			require.NotNil(t, f)
			assert.NotEqual(t, "true", f.DefaultValue)
		})
	}
}
