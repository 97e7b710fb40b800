// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package validation

import (
	"strings"
	"testing"
)

type listRequest struct {
	Limit    int     `query:"limit" validate:"gte=1,lte=100"`
	MinPrice float64 `query:"min_price" validate:"gte=0"`
	MaxPrice float64 `query:"max_price" validate:"omitempty,gtefield=MinPrice"`
	Search   string  `query:"q" validate:"max=10"`
	Period   string  `query:"period" validate:"omitempty,period"`
}

type interactionBody struct {
	UserID    int    `json:"user_id" validate:"required,gt=0"`
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Action    string `json:"action" validate:"required,interaction_action"`
	Internal  string `json:"-" validate:"max=1"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:  "valid list",
			input: &listRequest{Limit: 10, MinPrice: 5, MaxPrice: 50, Period: "weekly"},
		},
		{
			name:  "open price range",
			input: &listRequest{Limit: 10, MinPrice: 5},
		},
		{
			name:      "limit above max",
			input:     &listRequest{Limit: 500},
			wantField: "limit",
			wantTag:   "lte",
			wantMsg:   "limit must be less than or equal to 100",
		},
		{
			name:      "inverted price range",
			input:     &listRequest{Limit: 1, MinPrice: 50, MaxPrice: 10},
			wantField: "max_price",
			wantTag:   "gtefield",
			wantMsg:   "max_price must be greater than or equal to min_price",
		},
		{
			name:      "search too long",
			input:     &listRequest{Limit: 1, Search: strings.Repeat("a", 11)},
			wantField: "q",
			wantTag:   "max",
			wantMsg:   "q must be at most 10 characters",
		},
		{
			name:      "unknown period",
			input:     &listRequest{Limit: 1, Period: "hourly"},
			wantField: "period",
			wantTag:   "period",
			wantMsg:   "period must be one of: daily, weekly, monthly",
		},
		{
			name:  "valid interaction",
			input: &interactionBody{UserID: 1, ProductID: 2, Action: "cart"},
		},
		{
			name:      "served is not an interaction",
			input:     &interactionBody{UserID: 1, ProductID: 2, Action: "served"},
			wantField: "action",
			wantTag:   "interaction_action",
		},
		{
			name:      "missing user",
			input:     &interactionBody{ProductID: 2, Action: "view"},
			wantField: "user_id",
			wantTag:   "required",
			wantMsg:   "user_id is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err.Fields) != 1 {
				t.Fatalf("len(Fields) = %d, want 1: %v", len(err.Fields), err)
			}
			f := err.Fields[0]
			if f.Field != tt.wantField || f.Tag != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", f.Field, f.Tag, tt.wantField, tt.wantTag)
			}
			if tt.wantMsg != "" && f.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", f.Message, tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&listRequest{Limit: 0})
	if single == nil {
		t.Fatal("expected a validation error")
	}
	apiErr := single.ToAPIError()
	if apiErr.Code != ErrorCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrorCode)
	}
	if apiErr.Details["field"] != "limit" {
		t.Errorf("Details[field] = %v, want limit", apiErr.Details["field"])
	}

	multi := ValidateStruct(&interactionBody{})
	if multi == nil {
		t.Fatal("expected a validation error")
	}
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %v, want 3 field errors", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "; ") {
		t.Errorf("Message = %q, want joined messages", apiErr.Message)
	}

	empty := &RequestValidationError{}
	if got := empty.ToAPIError().Message; got != "Validation failed" {
		t.Errorf("empty Message = %q", got)
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"MinPrice":   "min_price",
		"MaxPrice":   "max_price",
		"limit":      "limit",
		"CategoryId": "category_id",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
