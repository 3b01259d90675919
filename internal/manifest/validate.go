// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern         = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	permissionIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*(\.[a-z][a-z0-9_-]*)+$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator with manifest tags registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("module_slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("permission_id", func(fl validator.FieldLevel) bool {
			return permissionIDPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// ValidationError describes every field that failed validation on one manifest.
type ValidationError struct {
	ModuleID string
	Fields   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest %q invalid: %s", e.ModuleID, strings.Join(e.Fields, "; "))
}

// Validate checks a single manifest's structure.
func Validate(m *ModuleManifest) error {
	if m == nil {
		return errors.New("manifest is nil")
	}

	err := validatorInstance().Struct(m)
	var fields []string
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate manifest %q: %w", m.ID, err)
		}
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}

	if m.RequiredPlan != nil && !m.RequiredPlan.Valid() {
		fields = append(fields, fmt.Sprintf("ModuleManifest.RequiredPlan %q is not a known plan", *m.RequiredPlan))
	}
	if m.IsGlobal() && m.CanDisable {
		fields = append(fields, "ModuleManifest.CanDisable must be false for global modules")
	}
	for _, dep := range m.DependsOn {
		if dep == m.ID {
			fields = append(fields, "ModuleManifest.DependsOn references the module itself")
		}
	}

	if len(fields) > 0 {
		return &ValidationError{ModuleID: m.ID, Fields: fields}
	}
	return nil
}
