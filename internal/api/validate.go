// Mercatus - Content-Based Product Recommendation Service
// Copyright 2026 Mercatus Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mercatus-labs/mercatus

package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. validator.Validate caches
// struct metadata, so a single instance is reused across requests.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct validates a request struct and flattens field errors
// into one readable message.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts[i] = fmt.Sprintf("%s is required", fe.Field())
		case "min":
			parts[i] = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "oneof":
			parts[i] = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			parts[i] = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
		}
	}
	return fmt.Errorf("validation failed: %s", strings.Join(parts, "; "))
}
