package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetailsPreserveInsertionOrder(t *testing.T) {
	d := NewDetails()
	d.Set("zebra", "1")
	d.Set("apple", "2")
	d.Set("mango", "3")
	d.Set("zebra", "updated") // overwrite keeps position

	assert.Equal(t, []string{"zebra", "apple", "mango"}, d.Keys())
	assert.Equal(t, 3, d.Len())

	value, ok := d.Get("zebra")
	assert.True(t, ok)
	assert.Equal(t, "updated", value)
}

func TestStatusSameComparesTrackedFields(t *testing.T) {
	base := func() ProviderStatus {
		d := NewDetails()
		d.Set(DetailAccountEmail, "a@b.com")
		return ProviderStatus{
			Name:          "gmail",
			IsHealthy:     true,
			IsInitialized: true,
			Status:        StatusConnected,
			Details:       d,
		}
	}

	tests := []struct {
		name   string
		mutate func(*ProviderStatus)
		same   bool
	}{
		{"identical", func(s *ProviderStatus) {}, true},
		{"health flip", func(s *ProviderStatus) { s.IsHealthy = false }, false},
		{"initialized flip", func(s *ProviderStatus) { s.IsInitialized = false }, false},
		{"setup flip", func(s *ProviderStatus) { s.RequiresSetup = true }, false},
		{"label change", func(s *ProviderStatus) { s.Status = StatusConnectionFailed }, false},
		{"error message change", func(s *ProviderStatus) { s.ErrorMessage = "x" }, false},
		{"identity change", func(s *ProviderStatus) {
			d := NewDetails()
			d.Set(DetailAccountEmail, "other@b.com")
			s.Details = d
		}, false},
		{"untracked detail change", func(s *ProviderStatus) {
			d := NewDetails()
			d.Set(DetailAccountEmail, "a@b.com")
			d.Set("latency_ms", "12")
			s.Details = d
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := base(), base()
			tt.mutate(&b)
			assert.Equal(t, tt.same, a.Same(b))
		})
	}
}

func TestStatusSameIgnoresLastCheck(t *testing.T) {
	a := ProviderStatus{Name: "openai", Status: StatusConnected, IsHealthy: true}
	b := a
	b.LastCheck = b.LastCheck.Add(1)
	assert.True(t, a.Same(b))
}

func TestIdentityEmailNilDetails(t *testing.T) {
	s := ProviderStatus{Name: "openai"}
	assert.Empty(t, s.IdentityEmail())
}
