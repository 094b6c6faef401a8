// model/policy_test.go
package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/workforcehq/aegis/model"
)

func TestValidWindowContains(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	t.Run("no bounds", func(t *testing.T) {
		p := model.Policy{}
		assert.True(t, p.ValidWindowContains(now))
	})

	t.Run("inside window", func(t *testing.T) {
		p := model.Policy{ValidFrom: &past, ValidUntil: &future}
		assert.True(t, p.ValidWindowContains(now))
	})

	t.Run("before window", func(t *testing.T) {
		p := model.Policy{ValidFrom: &future}
		assert.False(t, p.ValidWindowContains(now))
	})

	t.Run("after window", func(t *testing.T) {
		p := model.Policy{ValidUntil: &past}
		assert.False(t, p.ValidWindowContains(now))
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		p := model.Policy{ValidFrom: &now, ValidUntil: &now}
		assert.True(t, p.ValidWindowContains(now))
	})
}
