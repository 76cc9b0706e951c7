// Squaredown - Square Point-of-Sale Data Synchronization and Accounting Reports
// Copyright 2026 Lake Anne Brewhouse
// SPDX-License-Identifier: MIT
// https://github.com/lakeannebrewhouse/squaredown

package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the configuration for errors. Struct-level constraints are
// enforced with go-playground/validator tags; cross-field rules that tags
// cannot express are checked by hand.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			return fmt.Errorf("invalid configuration: %s", describeFieldErrors(verrs))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	checks := []func() error{
		c.validateMongoURI,
		c.validateStartMin,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// describeFieldErrors renders validator field errors as a compact,
// human-readable list.
func describeFieldErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// validateMongoURI ensures the connection string carries a mongodb scheme.
func (c *Config) validateMongoURI() error {
	if !strings.HasPrefix(c.Mongo.URI, "mongodb://") && !strings.HasPrefix(c.Mongo.URI, "mongodb+srv://") {
		return fmt.Errorf("MONGODB_URI must start with mongodb:// or mongodb+srv://")
	}
	return nil
}

// validateStartMin rejects zero or future minimum start times.
func (c *Config) validateStartMin() error {
	if c.Sync.StartMin.IsZero() {
		return fmt.Errorf("SYNC_START_MIN must be set")
	}
	if c.Sync.StartMin.After(time.Now()) {
		return fmt.Errorf("SYNC_START_MIN must not be in the future")
	}
	return nil
}
