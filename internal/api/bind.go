/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const maxBodyBytes = 1 << 20

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

// validation returns the shared validator, reporting fields by their json names.
func validation() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")

		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
	return validate, translator
}

// bindError is a client mistake in the request body.
type bindError struct {
	Code    string
	Message string
}

func (e *bindError) Error() string { return e.Message }

// decodeJSON reads a single JSON object into T and validates it.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, &bindError{Code: "invalid_json", Message: "empty body"}
		}
		return dst, &bindError{Code: "invalid_json", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if dec.More() {
		return dst, &bindError{Code: "invalid_json", Message: "unexpected trailing data"}
	}

	v, trans := validation()
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dst, &bindError{Code: "validation_failed", Message: verrs[0].Translate(trans)}
		}
		return dst, &bindError{Code: "validation_failed", Message: err.Error()}
	}
	return dst, nil
}

func writeBindError(w http.ResponseWriter, err error) {
	var be *bindError
	if errors.As(err, &be) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": be.Code, "message": be.Message})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request")
}
