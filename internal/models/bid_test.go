package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestValidBidAmount(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{"0", true},
		{"0.01", true},
		{"125.50", true},
		{"5.000000", true},
		{"100000000", true},
		{"100000000.00", true},
		{"1e8", true},
		{"99999999.99", true},
		{"-0.01", false},
		{"100000000.01", false},
		{"100000001", false},
		{"1e9", false},
		{"100.001", false},
		{"0.005", false},
		{"1e-40", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			check.Equal(t, tt.want, ValidBidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestValidBidAmountExtremeExponents(t *testing.T) {
	for _, body := range []string{
		`{"user_id":"alice","amount":1e900000000}`,
		`{"user_id":"alice","amount":1e-900000000}`,
		`{"user_id":"alice","amount":"0e900000000"}`,
	} {
		t.Run(body, func(t *testing.T) {
			var req BidRequest
			assert.NoError(t, json.Unmarshal([]byte(body), &req))

			done := make(chan bool, 1)
			go func() { done <- ValidBidAmount(req.Amount) }()
			select {
			case valid := <-done:
				check.False(t, valid)
			case <-time.After(2 * time.Second):
				t.Fatal("validation did not return promptly")
			}
		})
	}
}
