package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestParseDateQuery(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		endOfDay bool
		want     time.Time
		wantErr  bool
	}{
		{"empty is nil", "", false, time.Time{}, false},
		{"date only", "2024-03-05", false, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), false},
		{"date with time", "2024-03-05 14:30", false, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), false},
		{"date only upper bound", "2024-03-05", true, time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC), false},
		{"timed upper bound untouched", "2024-03-05 14:30", true, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), false},
		{"garbage", "yesterday", false, time.Time{}, true},
		{"wrong separators", "05.03.2024", false, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateQuery(tt.value, tt.endOfDay)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDateQuery(%q) succeeded, want error", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateQuery(%q): %v", tt.value, err)
			}
			if tt.value == "" {
				if got != nil {
					t.Fatalf("empty value parsed to %v, want nil", got)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDateQuery(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseDateRangeParamNames(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			"documented names",
			"/t?fromDate=2024-03-01&toDate=2024-03-05",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC),
		},
		{
			"short aliases",
			"/t?from=2024-03-01&to=2024-03-05",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 5, 23, 59, 59, 999000000, time.UTC),
		},
		{
			"documented names win over aliases",
			"/t?fromDate=2024-03-01&from=2020-01-01",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var from, to *time.Time
			var parseErr error

			app := fiber.New()
			app.Get("/t", func(c *fiber.Ctx) error {
				from, to, parseErr = parseDateRange(c)
				return nil
			})
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if parseErr != nil {
				t.Fatalf("parseDateRange: %v", parseErr)
			}

			if from == nil || !from.Equal(tt.wantFrom) {
				t.Errorf("from = %v, want %v", from, tt.wantFrom)
			}
			if tt.wantTo.IsZero() {
				if to != nil {
					t.Errorf("to = %v, want nil", to)
				}
			} else if to == nil || !to.Equal(tt.wantTo) {
				t.Errorf("to = %v, want %v", to, tt.wantTo)
			}
		})
	}
}
